// Package engine implements the hybrid sync engine: it owns the current user
// and session, keeps the local store authoritative, and reconciles with the
// cloud document store and the secondary record store as far as the platform
// capability set allows.
//
// Every write path persists locally first; only a local failure fails the
// operation. Backend propagation runs in the background and is best effort:
// failures are logged, surfaced via the snapshot sync status, and retried on
// the next reconciliation pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infinitumhq/infinitum/internal/common"
	"github.com/infinitumhq/infinitum/internal/logging"
	"github.com/infinitumhq/infinitum/internal/models"
	"github.com/infinitumhq/infinitum/internal/platform"
	"github.com/infinitumhq/infinitum/internal/remote"
	"github.com/infinitumhq/infinitum/internal/store"
)

// DefaultSyncInterval is the periodic reconciliation interval used when the
// configuration does not specify one.
const DefaultSyncInterval = 5 * time.Minute

// RemoteClient is the slice of the cloud document store client the engine
// uses. *remote.Client implements it.
type RemoteClient interface {
	SignInAnonymously(ctx context.Context) error
	SaveUser(ctx context.Context, u *models.User) error
	FetchUser(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	SaveSession(ctx context.Context, s *models.Session) error
	SubscribeToUser(ctx context.Context, userID string) error
	SubscribeToSession(ctx context.Context, sessionID string) error
	Events() <-chan remote.Event
	Online() bool
}

// RecordSyncer pushes user records to the secondary backend.
// *recordstore.Client implements it.
type RecordSyncer interface {
	SyncRecord(ctx context.Context, u *models.User, done func(error))
	DeleteRecord(ctx context.Context, userID string, done func(error))
}

// Engine coordinates the local store with the remote backends.
type Engine struct {
	store       *store.Store
	remote      RemoteClient
	records     RecordSyncer
	caps        platform.Set
	platformTag string
	deviceID    string
	interval    time.Duration
	log         logging.Logger

	mu         sync.Mutex
	state      State
	syncStatus SyncStatus
	lastError  string
	lastSyncAt time.Time
	user       *models.User
	session    *models.Session
	started    bool

	subMu sync.Mutex
	subs  []chan Snapshot

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	wg       sync.WaitGroup
}

// New builds an engine for the given device and platform. The capability set
// is resolved from the platform tag; backends outside the set are never
// touched, whatever clients are passed in.
func New(st *store.Store, rc RemoteClient, rs RecordSyncer, deviceID, platformTag string, syncInterval time.Duration, log logging.Logger) *Engine {
	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}
	return &Engine{
		store:       st,
		remote:      rc,
		records:     rs,
		caps:        platform.Backends(platformTag),
		platformTag: platformTag,
		deviceID:    deviceID,
		interval:    syncInterval,
		log:         log.With("device_id", deviceID, "platform", platformTag),
		state:       StateUnloaded,
		syncStatus:  SyncIdle,
	}
}

// Capabilities returns the resolved backend set.
func (e *Engine) Capabilities() platform.Set {
	return e.caps
}

func (e *Engine) remoteEnabled() bool {
	return e.remote != nil && e.caps.Has(platform.BackendRemote)
}

func (e *Engine) recordEnabled() bool {
	return e.records != nil && e.caps.Has(platform.BackendRecord)
}

// recordReachable gates record-store saves on connectivity. The remote
// client's online flag is the only signal available; without a remote client
// (the constrained spatial platform) saves are always attempted and the
// record store's own retry absorbs outages.
func (e *Engine) recordReachable() bool {
	if !e.remoteEnabled() {
		return true
	}
	return e.remote.Online()
}

// Start loads the user bound to this device, creating a default one on first
// launch, then begins the background run loop. The local load/create must
// succeed; remote backends are contacted asynchronously afterwards.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.started = true
	e.state = StateLoading
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.ctx = runCtx
	e.cancel = cancel
	e.mu.Unlock()
	e.notify()

	u, err := e.store.Users.FindByDeviceID(ctx, e.deviceID)
	if err != nil {
		e.failStart(err)
		return err
	}

	if u == nil {
		e.mu.Lock()
		e.state = StateCreating
		e.mu.Unlock()
		e.notify()

		u = e.defaultUser()
		if err := e.store.Users.Insert(ctx, u); err != nil {
			e.failStart(err)
			return err
		}
		e.log.Info(ctx, "created default user", "user_id", u.ID, "username", u.Username)
	}

	var sess *models.Session
	if u.CurrentSessionID != "" {
		sess, err = e.store.Sessions.FindByID(ctx, u.CurrentSessionID)
		if err != nil {
			e.log.Warn(ctx, "current session load failed", "session_id", u.CurrentSessionID, "error", err)
		}
	}

	e.mu.Lock()
	e.user = u
	e.session = sess
	e.state = StateLoaded
	e.mu.Unlock()
	e.notify()
	e.log.Info(ctx, "user loaded", "user_id", u.ID)

	if e.recordEnabled() && e.recordReachable() {
		e.records.SyncRecord(runCtx, u.Clone(), e.noteRecordResult)
	}
	if e.remoteEnabled() {
		userID := u.ID
		sessionID := u.CurrentSessionID
		e.background(func(ctx context.Context) {
			if err := e.remote.SubscribeToUser(ctx, userID); err != nil {
				e.log.Warn(ctx, "user subscription failed", "error", err)
			}
			if sessionID != "" {
				if err := e.remote.SubscribeToSession(ctx, sessionID); err != nil {
					e.log.Warn(ctx, "session subscription failed", "session_id", sessionID, "error", err)
				}
			}
			e.reconcile(ctx)
		})
	}

	e.loopDone = make(chan struct{})
	go e.run(runCtx)
	return nil
}

func (e *Engine) failStart(err error) {
	e.mu.Lock()
	e.state = StateUnloaded
	e.lastError = err.Error()
	e.mu.Unlock()
	e.notify()
}

// defaultUser builds the first-launch user for this installation. The
// username is derived from the device id; the email is a placeholder the
// owner can change later.
func (e *Engine) defaultUser() *models.User {
	short := shortDeviceTag(e.deviceID)
	username := "user_" + short
	email := fmt.Sprintf("%s@device.infinitum.app", username)
	return models.NewUser(username, email, e.deviceID, e.platformTag)
}

func shortDeviceTag(deviceID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(deviceID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 8 {
			break
		}
	}
	if b.Len() == 0 {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return b.String()
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.loopDone)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var events <-chan remote.Event
	if e.remoteEnabled() {
		events = e.remote.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reconcile(ctx)
		case ev := <-events:
			e.applyEvent(ctx, ev)
		}
	}
}

// reconcile runs one full sync pass: fetch the remote user, merge it into the
// local copy, persist, and push the merged copy back up. A pass that started
// less than half an interval ago is skipped.
func (e *Engine) reconcile(ctx context.Context) {
	if !e.remoteEnabled() || !e.remote.Online() {
		return
	}

	e.mu.Lock()
	if e.user == nil || e.state != StateLoaded {
		e.mu.Unlock()
		return
	}
	// half the interval, not the whole of it: a ticker pass arrives one
	// interval after the previous pass started, minus scheduler drift, and a
	// full-interval guard would suppress every other tick
	if time.Since(e.lastSyncAt) < e.interval/2 {
		e.mu.Unlock()
		return
	}
	e.lastSyncAt = time.Now()
	e.state = StateSyncing
	e.syncStatus = SyncInProgress
	userID := e.user.ID
	e.mu.Unlock()
	e.notify()

	remoteUser, err := e.remote.FetchUser(ctx, userID)
	if err != nil {
		e.finishSync(ctx, err)
		return
	}

	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return
	}
	if remoteUser != nil {
		mergeRemoteUser(e.user, remoteUser)
		e.user.Touch()
		if err := e.store.Users.Save(ctx, e.user); err != nil {
			e.mu.Unlock()
			e.finishSync(ctx, err)
			return
		}
	}
	cp := e.user.Clone()
	e.mu.Unlock()

	e.finishSync(ctx, e.remote.SaveUser(ctx, cp))
}

func (e *Engine) finishSync(ctx context.Context, err error) {
	e.mu.Lock()
	if e.state == StateSyncing {
		e.state = StateLoaded
	}
	if err != nil {
		e.syncStatus = SyncFailed
		e.lastError = err.Error()
	} else {
		e.syncStatus = SyncOK
		e.lastError = ""
	}
	e.mu.Unlock()
	if err != nil {
		e.log.Warn(ctx, "reconciliation failed", "error", err)
	}
	e.notify()
}

// applyEvent merges one push-delivered change into local state.
func (e *Engine) applyEvent(ctx context.Context, ev remote.Event) {
	switch ev.Kind {
	case remote.EventUserUpdated:
		if ev.User == nil {
			return
		}
		e.mu.Lock()
		if e.user == nil || e.user.ID != ev.User.ID {
			e.mu.Unlock()
			return
		}
		mergeRemoteUser(e.user, ev.User)
		e.user.Touch()
		err := e.store.Users.Save(ctx, e.user)
		e.mu.Unlock()
		if err != nil {
			e.log.Warn(ctx, "push user merge save failed", "error", err)
			return
		}
		e.notify()

	case remote.EventSessionUpdated:
		if ev.Session == nil {
			return
		}
		e.applySessionEvent(ctx, ev.Session)
	}
}

// User returns a copy of the current user, or nil before Start.
func (e *Engine) User() *models.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return nil
	}
	return e.user.Clone()
}

// UpdateUser applies fn to the current user under the engine lock, persists
// the result locally and propagates it to the available backends. Only the
// local save can fail the call.
func (e *Engine) UpdateUser(ctx context.Context, fn func(*models.User)) error {
	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return common.ErrNotInitialized
	}
	if fn != nil {
		fn(e.user)
	}
	if e.user.UnlockedScreens > e.user.TotalScreens {
		e.user.UnlockedScreens = e.user.TotalScreens
	}
	e.user.Touch()
	if err := e.store.Users.Save(ctx, e.user); err != nil {
		e.lastError = err.Error()
		e.mu.Unlock()
		e.notify()
		return err
	}
	cp := e.user.Clone()
	e.mu.Unlock()
	e.notify()

	e.propagateUser(cp)
	return nil
}

// SaveUser persists the current user and propagates it to the backends.
func (e *Engine) SaveUser(ctx context.Context) error {
	return e.UpdateUser(ctx, nil)
}

// propagateUser pushes an already-cloned user to the backends in the
// background. Failures are logged and reflected in the sync status only.
func (e *Engine) propagateUser(cp *models.User) {
	if e.remoteEnabled() {
		e.background(func(ctx context.Context) {
			if err := e.remote.SaveUser(ctx, cp); err != nil {
				e.noteSyncFailure(err)
				e.log.Warn(ctx, "remote user save failed", "error", err)
			}
		})
	}
	if e.recordEnabled() && e.recordReachable() {
		e.records.SyncRecord(e.ctx, cp, e.noteRecordResult)
	}
}

// DeleteUser removes the account. The local delete must succeed; backend
// deletions run in the background, independently of each other.
func (e *Engine) DeleteUser(ctx context.Context) error {
	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return common.ErrNotInitialized
	}
	userID := e.user.ID
	if err := e.store.Users.Delete(ctx, userID); err != nil {
		e.lastError = err.Error()
		e.mu.Unlock()
		e.notify()
		return err
	}
	e.user = nil
	e.session = nil
	e.state = StateUnloaded
	e.mu.Unlock()
	e.notify()
	e.log.Info(ctx, "user deleted", "user_id", userID)

	if e.remoteEnabled() {
		e.background(func(ctx context.Context) {
			if err := e.remote.DeleteUser(ctx, userID); err != nil {
				e.log.Warn(ctx, "remote user delete failed", "user_id", userID, "error", err)
			}
		})
	}
	if e.recordEnabled() {
		e.records.DeleteRecord(e.ctx, userID, e.noteRecordResult)
	}
	return nil
}

// FindUserByEmail looks the user up in the local store. Absence is nil, nil.
func (e *Engine) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return e.store.Users.FindByEmail(ctx, email)
}

// FindUserByUsername looks the user up in the local store.
func (e *Engine) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return e.store.Users.FindByUsername(ctx, username)
}

// FindUserByResetToken resolves a password reset token to its user.
func (e *Engine) FindUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return e.store.Users.FindByResetToken(ctx, token)
}

func (e *Engine) noteSyncFailure(err error) {
	e.mu.Lock()
	e.syncStatus = SyncFailed
	e.lastError = err.Error()
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) noteRecordResult(err error) {
	if err != nil {
		e.noteSyncFailure(err)
	}
}

func (e *Engine) background(fn func(context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(e.ctx)
	}()
}

// Close stops the run loop and waits for in-flight background propagation.
func (e *Engine) Close() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.loopDone
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	e.wg.Wait()
}
