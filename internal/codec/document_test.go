package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitumhq/infinitum/internal/models"
)

func fullUser(t *testing.T) *models.User {
	t.Helper()
	u := models.NewUser("alice_1", "alice@example.com", "dev-1", "ios")
	u.PasswordHash = "hash"
	u.DisplayName = "Alice"
	u.AvatarURL = "https://cdn.example.com/a.png"
	u.Bio = "hi"
	u.Preferences = map[string]string{"theme": "dark"}
	u.PromoCodeUsed = "UNLOCKALL"
	u.SubscriptionType = "promo"
	exp := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond)
	u.SubscriptionExpiry = &exp
	u.CurrentSessionID = "sess-1"
	u.GenerateVerificationToken()
	u.GenerateResetToken()
	u.FailedLoginAttempts = 3
	return u
}

func TestUserRoundTrip_AllFields(t *testing.T) {
	u := fullUser(t)

	got, err := UserFromDocument(UserToDocument(u))
	require.NoError(t, err)

	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, u.DeviceID, got.DeviceID)
	assert.Equal(t, u.Platform, got.Platform)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, u.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, u.VerificationToken, got.VerificationToken)
	require.NotNil(t, got.VerificationExpiry)
	assert.True(t, u.VerificationExpiry.Equal(*got.VerificationExpiry))
	assert.Equal(t, u.IsPremium, got.IsPremium)
	assert.Equal(t, u.UnlockedScreens, got.UnlockedScreens)
	assert.Equal(t, u.TotalScreens, got.TotalScreens)
	assert.Equal(t, u.AdsEnabled, got.AdsEnabled)
	assert.Equal(t, u.PromoCodeUsed, got.PromoCodeUsed)
	assert.Equal(t, u.SubscriptionType, got.SubscriptionType)
	require.NotNil(t, got.SubscriptionExpiry)
	assert.True(t, u.SubscriptionExpiry.Equal(*got.SubscriptionExpiry))
	assert.Equal(t, u.CurrentSessionID, got.CurrentSessionID)
	assert.Equal(t, u.DisplayName, got.DisplayName)
	assert.Equal(t, u.AvatarURL, got.AvatarURL)
	assert.Equal(t, u.Bio, got.Bio)
	assert.Equal(t, u.Preferences, got.Preferences)
	assert.Equal(t, u.ResetToken, got.ResetToken)
	assert.Equal(t, u.FailedLoginAttempts, got.FailedLoginAttempts)
}

func TestUserRoundTrip_AbsentOptionalsDecodeToDefaults(t *testing.T) {
	u := models.NewUser("bob_2", "bob@example.com", "dev-2", "ios")

	doc := UserToDocument(u)
	assert.NotContains(t, doc, "passwordHash")
	assert.NotContains(t, doc, "verificationToken")
	assert.NotContains(t, doc, "subscriptionExpiry")
	assert.NotContains(t, doc, "preferences")
	assert.NotContains(t, doc, "lockedUntil")

	got, err := UserFromDocument(doc)
	require.NoError(t, err)

	fresh := models.NewUser("bob_2", "bob@example.com", "dev-2", "ios")
	assert.Equal(t, fresh.UnlockedScreens, got.UnlockedScreens)
	assert.Equal(t, fresh.TotalScreens, got.TotalScreens)
	assert.Equal(t, fresh.IsPremium, got.IsPremium)
	assert.Equal(t, fresh.AdsEnabled, got.AdsEnabled)
	assert.Equal(t, fresh.FailedLoginAttempts, got.FailedLoginAttempts)
	assert.Empty(t, got.PasswordHash)
	assert.Nil(t, got.SubscriptionExpiry)
	assert.Nil(t, got.LockedUntil)
	assert.Nil(t, got.Preferences)
}

func TestUserFromDocument_MissingRequired(t *testing.T) {
	doc := UserToDocument(fullUser(t))
	delete(doc, "email")

	_, err := UserFromDocument(doc)
	require.Error(t, err)

	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "user", mf.Group)
	assert.Equal(t, "email", mf.Field)
}

func TestUserFromDocument_MistypedRequired(t *testing.T) {
	doc := UserToDocument(fullUser(t))
	doc["createdAt"] = "2025-01-01" // string, not a timestamp

	_, err := UserFromDocument(doc)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "createdAt", mf.Field)
}

func TestUserFromDocument_LenientIntegers(t *testing.T) {
	doc := UserToDocument(fullUser(t))
	doc["unlockedScreens"] = int64(7) // Firestore hands back int64
	doc["totalScreens"] = float64(10)

	got, err := UserFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, 7, got.UnlockedScreens)
	assert.Equal(t, 10, got.TotalScreens)
}

func TestSessionRoundTrip(t *testing.T) {
	s := models.NewSession("room", "dev-1")
	s.Join("dev-2")
	s.RecordRef = "rec-9"

	got, err := SessionFromDocument(SessionToDocument(s))
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Name, got.Name)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, s.Active, got.Active)
	assert.Equal(t, []string{"dev-1", "dev-2"}, got.Participants)
	assert.Equal(t, "rec-9", got.RecordRef)
}

func TestSessionFromDocument_MissingName(t *testing.T) {
	doc := SessionToDocument(models.NewSession("room", "dev-1"))
	delete(doc, "name")

	_, err := SessionFromDocument(doc)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "session", mf.Group)
	assert.Equal(t, "name", mf.Field)
}

func TestDecodeParticipants_LenientOnGarbage(t *testing.T) {
	assert.Equal(t, []string{}, DecodeParticipants(""))
	assert.Equal(t, []string{}, DecodeParticipants("not-base64!!!"))
	// valid base64 of invalid JSON
	assert.Equal(t, []string{}, DecodeParticipants("bm90IGpzb24="))
}

func TestPositionRoundTrip(t *testing.T) {
	p := models.NewDevicePosition(1.5, -2.25, 0.75, 90, "dev-1", "sess-1")

	got, err := PositionFromDocument(PositionToDocument(p))
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.X, got.X)
	assert.Equal(t, p.Y, got.Y)
	assert.Equal(t, p.Z, got.Z)
	assert.Equal(t, p.Rotation, got.Rotation)
	assert.Equal(t, p.DeviceID, got.DeviceID)
	assert.Equal(t, p.SessionID, got.SessionID)
	assert.True(t, p.Timestamp.Equal(got.Timestamp))
}

func TestPositionFromDocument_MissingCoordinate(t *testing.T) {
	doc := PositionToDocument(models.NewDevicePosition(1, 2, 3, 0, "dev-1", "sess-1"))
	delete(doc, "z")

	_, err := PositionFromDocument(doc)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "position", mf.Group)
	assert.Equal(t, "z", mf.Field)
}
