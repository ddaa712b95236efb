package engine

import (
	"context"
	"sync"

	"github.com/infinitumhq/infinitum/internal/models"
	"github.com/infinitumhq/infinitum/internal/remote"
)

// fakeRemote is a thread-safe in-memory RemoteClient spy.
type fakeRemote struct {
	mu sync.Mutex

	offline     bool
	saveUserErr error
	fetchUser   *models.User
	fetchErr    error

	calls              int
	savedUsers         []*models.User
	savedSessions      []*models.Session
	deletedUsers       []string
	subscribedUsers    []string
	subscribedSessions []string

	events chan remote.Event
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{events: make(chan remote.Event, 16)}
}

func (f *fakeRemote) called() {
	f.calls++
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) SignInAnonymously(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	return nil
}

func (f *fakeRemote) SaveUser(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	if f.saveUserErr != nil {
		return f.saveUserErr
	}
	f.savedUsers = append(f.savedUsers, u.Clone())
	return nil
}

func (f *fakeRemote) FetchUser(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchUser == nil {
		return nil, nil
	}
	return f.fetchUser.Clone(), nil
}

func (f *fakeRemote) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	f.deletedUsers = append(f.deletedUsers, id)
	return nil
}

func (f *fakeRemote) SaveSession(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	f.savedSessions = append(f.savedSessions, s.Clone())
	return nil
}

func (f *fakeRemote) SubscribeToUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	f.subscribedUsers = append(f.subscribedUsers, userID)
	return nil
}

func (f *fakeRemote) SubscribeToSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	f.subscribedSessions = append(f.subscribedSessions, sessionID)
	return nil
}

func (f *fakeRemote) Events() <-chan remote.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called()
	return f.events
}

func (f *fakeRemote) setOffline(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = v
}

func (f *fakeRemote) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline
}

func (f *fakeRemote) lastSavedUser() *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.savedUsers) == 0 {
		return nil
	}
	return f.savedUsers[len(f.savedUsers)-1]
}

// fakeRecords is a synchronous RecordSyncer spy; done runs inline.
type fakeRecords struct {
	mu      sync.Mutex
	err     error
	synced  []string
	deleted []string
}

func (f *fakeRecords) SyncRecord(ctx context.Context, u *models.User, done func(error)) {
	f.mu.Lock()
	f.synced = append(f.synced, u.ID)
	err := f.err
	f.mu.Unlock()
	if done != nil {
		done(err)
	}
}

func (f *fakeRecords) DeleteRecord(ctx context.Context, userID string, done func(error)) {
	f.mu.Lock()
	f.deleted = append(f.deleted, userID)
	err := f.err
	f.mu.Unlock()
	if done != nil {
		done(err)
	}
}

func (f *fakeRecords) syncedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.synced...)
}

func (f *fakeRecords) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
