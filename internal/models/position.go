package models

import (
	"time"

	"github.com/google/uuid"
)

// DevicePosition is an ephemeral 3D pose sample tied to one device within
// one session. Samples are appended, never edited.
type DevicePosition struct {
	ID        string
	X         float64
	Y         float64
	Z         float64
	Rotation  float64
	DeviceID  string
	SessionID string
	Timestamp time.Time
}

// NewDevicePosition constructs a pose sample stamped with the current time.
func NewDevicePosition(x, y, z, rotation float64, deviceID, sessionID string) *DevicePosition {
	return &DevicePosition{
		ID:        uuid.NewString(),
		X:         x,
		Y:         y,
		Z:         z,
		Rotation:  rotation,
		DeviceID:  deviceID,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}
