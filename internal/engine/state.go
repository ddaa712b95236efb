package engine

import "github.com/infinitumhq/infinitum/internal/models"

// State is the engine lifecycle phase.
type State string

const (
	// StateUnloaded means no user is loaded (before Start or after DeleteUser).
	StateUnloaded State = "unloaded"
	// StateLoading means the local user lookup is in progress.
	StateLoading State = "loading"
	// StateCreating means no local user existed and a default one is being created.
	StateCreating State = "creating"
	// StateLoaded means the user is loaded and the engine is idle.
	StateLoaded State = "loaded"
	// StateSyncing means a reconciliation pass with the remote store is running.
	StateSyncing State = "syncing"
)

// SyncStatus is the outcome of the most recent backend interaction.
type SyncStatus string

const (
	SyncIdle       SyncStatus = "idle"
	SyncInProgress SyncStatus = "in_progress"
	SyncOK         SyncStatus = "ok"
	SyncFailed     SyncStatus = "failed"
)

// Snapshot is an immutable view of the engine state handed to subscribers.
// User and Session are deep copies; mutating them has no effect on the engine.
type Snapshot struct {
	State      State
	SyncStatus SyncStatus
	LastError  string
	Online     bool
	Loading    bool
	User       *models.User
	Session    *models.Session

	// Premium and UnlockedScreens mirror the user fields the UI gates on,
	// valid even while User is nil.
	Premium         bool
	UnlockedScreens int
}

const snapshotBuffer = 8

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      e.state,
		SyncStatus: e.syncStatus,
		LastError:  e.lastError,
		Loading:    e.state == StateLoading || e.state == StateCreating,
	}
	if e.remoteEnabled() {
		snap.Online = e.remote.Online()
	}
	if e.user != nil {
		snap.User = e.user.Clone()
		snap.Premium = e.user.IsPremium
		snap.UnlockedScreens = e.user.UnlockedScreens
	}
	if e.session != nil {
		snap.Session = e.session.Clone()
	}
	return snap
}

// Subscribe registers a state observer. The channel is buffered; when an
// observer lags, older snapshots are dropped so it always receives a recent
// one. Subscriptions live for the lifetime of the engine.
func (e *Engine) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, snapshotBuffer)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()
	return ch
}

func (e *Engine) notify() {
	snap := e.Snapshot()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
