package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a named collaborative context joinable by multiple devices.
// Participants is an ordered, duplicate-free set of device identifiers.
type Session struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastActiveAt time.Time
	Active       bool
	Participants []string

	// RecordRef optionally references the secondary-backend record.
	RecordRef string
}

// NewSession constructs an active session created by the given device.
func NewSession(name, creatorDeviceID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    now,
		LastActiveAt: now,
		Active:       true,
		Participants: []string{creatorDeviceID},
	}
}

// Clone returns a deep copy safe to hand to background goroutines.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Participants = append([]string(nil), s.Participants...)
	return &cp
}

// HasParticipant reports whether the device is already a participant.
func (s *Session) HasParticipant(deviceID string) bool {
	for _, p := range s.Participants {
		if p == deviceID {
			return true
		}
	}
	return false
}

// Join adds the device to the participant set. Joining an already-joined
// device is a membership no-op but still bumps LastActiveAt. It returns
// whether the membership changed.
func (s *Session) Join(deviceID string) bool {
	s.LastActiveAt = time.Now().UTC()
	if s.HasParticipant(deviceID) {
		return false
	}
	s.Participants = append(s.Participants, deviceID)
	return true
}

// Leave removes the device from the participant set if present.
func (s *Session) Leave(deviceID string) {
	for i, p := range s.Participants {
		if p == deviceID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			break
		}
	}
	s.LastActiveAt = time.Now().UTC()
}

// Deactivate marks the session as abandoned. Sessions are never deleted
// automatically.
func (s *Session) Deactivate() {
	s.Active = false
	s.LastActiveAt = time.Now().UTC()
}
