// Package codec maps entity records to and from the generic key/value
// document representation used by the remote document store.
//
// Required fields are always written. Optional fields are written only when
// present, never as explicit nulls, so partial updates keep remote documents
// sparse and cannot overwrite server-side values with empties. Decoding
// validates every required field and falls back to the entity constructors'
// defaults for absent optional ones.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/infinitumhq/infinitum/internal/models"
)

// MissingFieldError reports a required document field that is absent or has
// the wrong type. Group names the entity kind: user, session or position.
type MissingFieldError struct {
	Group string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Group, e.Field)
}

func missing(group, field string) error {
	return &MissingFieldError{Group: group, Field: field}
}

// UserToDocument encodes a user as a sparse document.
func UserToDocument(u *models.User) map[string]any {
	doc := map[string]any{
		"id":                  u.ID,
		"username":            u.Username,
		"email":               u.Email,
		"deviceId":            u.DeviceID,
		"platform":            u.Platform,
		"createdAt":           u.CreatedAt,
		"updatedAt":           u.UpdatedAt,
		"emailVerified":       u.EmailVerified,
		"isActive":            u.Active,
		"lastActiveAt":        u.LastActiveAt,
		"isPremium":           u.IsPremium,
		"unlockedScreens":     u.UnlockedScreens,
		"totalScreens":        u.TotalScreens,
		"adsEnabled":          u.AdsEnabled,
		"failedLoginAttempts": u.FailedLoginAttempts,
	}

	putString(doc, "passwordHash", u.PasswordHash)
	putString(doc, "verificationToken", u.VerificationToken)
	putTime(doc, "verificationExpiry", u.VerificationExpiry)
	putTime(doc, "lastLoginAt", u.LastLoginAt)
	putString(doc, "subscriptionType", u.SubscriptionType)
	putTime(doc, "subscriptionExpiry", u.SubscriptionExpiry)
	putString(doc, "promoCodeUsed", u.PromoCodeUsed)
	putString(doc, "currentSessionId", u.CurrentSessionID)
	putString(doc, "displayName", u.DisplayName)
	putString(doc, "avatarUrl", u.AvatarURL)
	putString(doc, "bio", u.Bio)
	putString(doc, "resetToken", u.ResetToken)
	putTime(doc, "resetExpiry", u.ResetExpiry)
	putTime(doc, "lockedUntil", u.LockedUntil)

	if len(u.Preferences) > 0 {
		if b, err := json.Marshal(u.Preferences); err == nil {
			doc["preferences"] = string(b)
		}
	}

	return doc
}

// UserFromDocument decodes a user document, validating required fields.
func UserFromDocument(doc map[string]any) (*models.User, error) {
	const group = "user"

	u := &models.User{}
	var ok bool

	if u.ID, ok = asString(doc["id"]); !ok {
		return nil, missing(group, "id")
	}
	if u.Username, ok = asString(doc["username"]); !ok {
		return nil, missing(group, "username")
	}
	if u.Email, ok = asString(doc["email"]); !ok {
		return nil, missing(group, "email")
	}
	if u.DeviceID, ok = asString(doc["deviceId"]); !ok {
		return nil, missing(group, "deviceId")
	}
	if u.Platform, ok = asString(doc["platform"]); !ok {
		return nil, missing(group, "platform")
	}
	if u.CreatedAt, ok = asTime(doc["createdAt"]); !ok {
		return nil, missing(group, "createdAt")
	}
	if u.UpdatedAt, ok = asTime(doc["updatedAt"]); !ok {
		return nil, missing(group, "updatedAt")
	}

	u.EmailVerified = optBool(doc, "emailVerified", false)
	u.Active = optBool(doc, "isActive", true)
	u.LastActiveAt = optTime(doc, "lastActiveAt", u.UpdatedAt)
	u.IsPremium = optBool(doc, "isPremium", false)
	u.UnlockedScreens = optInt(doc, "unlockedScreens", models.DefaultUnlockedScreens)
	u.TotalScreens = optInt(doc, "totalScreens", models.DefaultTotalScreens)
	u.AdsEnabled = optBool(doc, "adsEnabled", true)
	u.FailedLoginAttempts = optInt(doc, "failedLoginAttempts", 0)

	u.PasswordHash = optString(doc, "passwordHash")
	u.VerificationToken = optString(doc, "verificationToken")
	u.VerificationExpiry = optTimePtr(doc, "verificationExpiry")
	u.LastLoginAt = optTimePtr(doc, "lastLoginAt")
	u.SubscriptionType = optString(doc, "subscriptionType")
	u.SubscriptionExpiry = optTimePtr(doc, "subscriptionExpiry")
	u.PromoCodeUsed = optString(doc, "promoCodeUsed")
	u.CurrentSessionID = optString(doc, "currentSessionId")
	u.DisplayName = optString(doc, "displayName")
	u.AvatarURL = optString(doc, "avatarUrl")
	u.Bio = optString(doc, "bio")
	u.ResetToken = optString(doc, "resetToken")
	u.ResetExpiry = optTimePtr(doc, "resetExpiry")
	u.LockedUntil = optTimePtr(doc, "lockedUntil")

	// lenient: an unreadable blob decodes to no preferences, not an error
	if s, ok := asString(doc["preferences"]); ok {
		var prefs map[string]string
		if err := json.Unmarshal([]byte(s), &prefs); err == nil {
			u.Preferences = prefs
		}
	}

	return u, nil
}

// SessionToDocument encodes a session. Participants are serialized as
// base64 over a JSON string array.
func SessionToDocument(s *models.Session) map[string]any {
	doc := map[string]any{
		"id":           s.ID,
		"name":         s.Name,
		"createdAt":    s.CreatedAt,
		"lastActiveAt": s.LastActiveAt,
		"isActive":     s.Active,
		"participants": EncodeParticipants(s.Participants),
	}
	putString(doc, "recordRef", s.RecordRef)
	return doc
}

// SessionFromDocument decodes a session document.
func SessionFromDocument(doc map[string]any) (*models.Session, error) {
	const group = "session"

	s := &models.Session{}
	var ok bool

	if s.ID, ok = asString(doc["id"]); !ok {
		return nil, missing(group, "id")
	}
	if s.Name, ok = asString(doc["name"]); !ok {
		return nil, missing(group, "name")
	}
	if s.CreatedAt, ok = asTime(doc["createdAt"]); !ok {
		return nil, missing(group, "createdAt")
	}

	s.LastActiveAt = optTime(doc, "lastActiveAt", s.CreatedAt)
	s.Active = optBool(doc, "isActive", true)
	s.RecordRef = optString(doc, "recordRef")
	s.Participants = DecodeParticipants(optString(doc, "participants"))

	return s, nil
}

// PositionToDocument encodes a pose sample.
func PositionToDocument(p *models.DevicePosition) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"x":         p.X,
		"y":         p.Y,
		"z":         p.Z,
		"rotation":  p.Rotation,
		"deviceId":  p.DeviceID,
		"sessionId": p.SessionID,
		"timestamp": p.Timestamp,
	}
}

// PositionFromDocument decodes a pose sample document.
func PositionFromDocument(doc map[string]any) (*models.DevicePosition, error) {
	const group = "position"

	p := &models.DevicePosition{}
	var ok bool

	if p.ID, ok = asString(doc["id"]); !ok {
		return nil, missing(group, "id")
	}
	if p.X, ok = asFloat(doc["x"]); !ok {
		return nil, missing(group, "x")
	}
	if p.Y, ok = asFloat(doc["y"]); !ok {
		return nil, missing(group, "y")
	}
	if p.Z, ok = asFloat(doc["z"]); !ok {
		return nil, missing(group, "z")
	}
	if p.Rotation, ok = asFloat(doc["rotation"]); !ok {
		return nil, missing(group, "rotation")
	}
	if p.DeviceID, ok = asString(doc["deviceId"]); !ok {
		return nil, missing(group, "deviceId")
	}
	if p.SessionID, ok = asString(doc["sessionId"]); !ok {
		return nil, missing(group, "sessionId")
	}
	if p.Timestamp, ok = asTime(doc["timestamp"]); !ok {
		return nil, missing(group, "timestamp")
	}

	return p, nil
}

// EncodeParticipants serializes device ids as base64 over a JSON array.
func EncodeParticipants(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeParticipants is the lenient inverse of EncodeParticipants: any
// decode failure yields an empty set rather than an error.
func DecodeParticipants(blob string) []string {
	if blob == "" {
		return []string{}
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}
	}
	return ids
}

func putString(doc map[string]any, key, val string) {
	if val != "" {
		doc[key] = val
	}
}

func putTime(doc map[string]any, key string, val *time.Time) {
	if val != nil {
		doc[key] = *val
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asInt accepts the integer shapes different backends hand back: Go ints,
// Firestore int64s and JSON float64s.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func optString(doc map[string]any, key string) string {
	s, _ := asString(doc[key])
	return s
}

func optBool(doc map[string]any, key string, def bool) bool {
	if b, ok := asBool(doc[key]); ok {
		return b
	}
	return def
}

func optInt(doc map[string]any, key string, def int) int {
	if n, ok := asInt(doc[key]); ok {
		return n
	}
	return def
}

func optTime(doc map[string]any, key string, def time.Time) time.Time {
	if t, ok := asTime(doc[key]); ok {
		return t
	}
	return def
}

func optTimePtr(doc map[string]any, key string) *time.Time {
	if t, ok := asTime(doc[key]); ok {
		return &t
	}
	return nil
}
