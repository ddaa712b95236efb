package engine

import (
	"context"
	"fmt"

	"github.com/infinitumhq/infinitum/internal/common"
	"github.com/infinitumhq/infinitum/internal/models"
)

// CurrentSession returns a copy of the active session, or nil.
func (e *Engine) CurrentSession() *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return e.session.Clone()
}

// CreateSession starts a new session with this device as the first
// participant and makes it the current one. Local persistence of both the
// session and the user reference must succeed; remote propagation is best
// effort.
func (e *Engine) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return nil, common.ErrNotInitialized
	}

	s := models.NewSession(name, e.deviceID)
	if err := e.store.Sessions.Save(ctx, s); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.user.CurrentSessionID = s.ID
	e.user.Touch()
	if err := e.store.Users.Save(ctx, e.user); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.session = s
	cp := s.Clone()
	e.mu.Unlock()
	e.notify()
	e.log.Info(ctx, "session created", "session_id", cp.ID, "name", cp.Name)

	e.propagateSession(cp, true)
	return s.Clone(), nil
}

// JoinSession attaches this device to an existing session and makes it the
// current one. Joining is strictly local: an unknown id returns false and
// never triggers a remote lookup. Local persistence failures also return
// false, leaving the previous current session in place.
func (e *Engine) JoinSession(ctx context.Context, sessionID string) bool {
	s, err := e.store.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		e.log.Warn(ctx, "session lookup failed", "session_id", sessionID, "error", err)
		return false
	}
	if s == nil {
		return false
	}

	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return false
	}
	s.Join(e.deviceID)
	if err := e.store.Sessions.Save(ctx, s); err != nil {
		e.mu.Unlock()
		e.log.Warn(ctx, "session join save failed", "session_id", sessionID, "error", err)
		return false
	}
	e.user.CurrentSessionID = s.ID
	e.user.Touch()
	if err := e.store.Users.Save(ctx, e.user); err != nil {
		e.mu.Unlock()
		e.log.Warn(ctx, "session join user save failed", "session_id", sessionID, "error", err)
		return false
	}
	e.session = s
	cp := s.Clone()
	e.mu.Unlock()
	e.notify()
	e.log.Info(ctx, "session joined", "session_id", cp.ID)

	e.propagateSession(cp, true)
	return true
}

// LeaveSession detaches this device from the current session. Without a
// current session it is a no-op.
func (e *Engine) LeaveSession(ctx context.Context) error {
	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return common.ErrNotInitialized
	}
	if e.session == nil {
		e.mu.Unlock()
		return nil
	}
	s := e.session
	s.Leave(e.deviceID)
	if err := e.store.Sessions.Save(ctx, s); err != nil {
		e.mu.Unlock()
		return err
	}
	e.user.CurrentSessionID = ""
	e.user.Touch()
	if err := e.store.Users.Save(ctx, e.user); err != nil {
		e.mu.Unlock()
		return err
	}
	e.session = nil
	cp := s.Clone()
	e.mu.Unlock()
	e.notify()

	// push the departure, but a left session gets no new listener
	e.propagateSession(cp, false)
	return nil
}

// applySessionEvent handles a push-delivered session change. A change to the
// current session updates it in place; a session this device has not seen yet
// is persisted and adopted as the current one, which is how an invitation
// from another device arrives.
func (e *Engine) applySessionEvent(ctx context.Context, s *models.Session) {
	e.mu.Lock()
	if cur := e.session; cur != nil && cur.ID == s.ID {
		cur.Name = s.Name
		cur.Active = s.Active
		cur.LastActiveAt = s.LastActiveAt
		cur.Participants = append([]string(nil), s.Participants...)
		if s.RecordRef != "" {
			cur.RecordRef = s.RecordRef
		}
		err := e.store.Sessions.Save(ctx, cur)
		e.mu.Unlock()
		if err != nil {
			e.log.Warn(ctx, "push session merge save failed", "session_id", s.ID, "error", err)
			return
		}
		e.notify()
		return
	}

	cp := s.Clone()
	if err := e.store.Sessions.Save(ctx, cp); err != nil {
		e.mu.Unlock()
		e.log.Warn(ctx, "push session save failed", "session_id", s.ID, "error", err)
		return
	}
	e.session = cp
	if e.user != nil {
		e.user.CurrentSessionID = cp.ID
		e.user.Touch()
		if err := e.store.Users.Save(ctx, e.user); err != nil {
			e.log.Warn(ctx, "push session user save failed", "session_id", s.ID, "error", err)
		}
	}
	e.mu.Unlock()
	e.notify()
	e.log.Info(ctx, "adopted pushed session", "session_id", cp.ID)
}

func (e *Engine) propagateSession(cp *models.Session, subscribe bool) {
	if !e.remoteEnabled() {
		return
	}
	e.background(func(ctx context.Context) {
		if err := e.remote.SaveSession(ctx, cp); err != nil {
			e.noteSyncFailure(err)
			e.log.Warn(ctx, "remote session save failed", "session_id", cp.ID, "error", err)
			return
		}
		if !subscribe {
			return
		}
		if err := e.remote.SubscribeToSession(ctx, cp.ID); err != nil {
			e.log.Warn(ctx, "session subscription failed", "session_id", cp.ID, "error", err)
		}
	})
}

// RecordPosition stores a spatial sample for this device in the current
// session. Samples are local-only and pruned per device by the store.
func (e *Engine) RecordPosition(ctx context.Context, x, y, z, rotation float64) error {
	e.mu.Lock()
	sess := e.session
	e.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("no active session: %w", common.ErrNotFound)
	}

	p := models.NewDevicePosition(x, y, z, rotation, e.deviceID, sess.ID)
	return e.store.Positions.Insert(ctx, p)
}

// SessionPositions returns the retained position samples for a session,
// newest first.
func (e *Engine) SessionPositions(ctx context.Context, sessionID string) ([]*models.DevicePosition, error) {
	return e.store.Positions.FindBySession(ctx, sessionID)
}
