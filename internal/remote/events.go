package remote

import "github.com/infinitumhq/infinitum/internal/models"

// EventKind classifies a push-delivered change.
type EventKind string

const (
	EventUserUpdated    EventKind = "user_updated"
	EventSessionUpdated EventKind = "session_updated"
)

// Event carries a changed entity from the remote store to the sync engine.
// Exactly one of User or Session is set, matching Kind.
type Event struct {
	Kind    EventKind
	User    *models.User
	Session *models.Session
}
