package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitumhq/infinitum/internal/models"
)

func TestUserRepository_InsertAndFindByDeviceID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("alice_1", "alice@example.com", "dev-1", "ios")
	u.Preferences = map[string]string{"theme": "dark"}
	require.NoError(t, s.Users.Insert(ctx, u))

	got, err := s.Users.FindByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice_1", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, map[string]string{"theme": "dark"}, got.Preferences)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	missing, err := s.Users.FindByDeviceID(ctx, "dev-absent")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_Save_Upserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("bob_2", "bob@example.com", "dev-2", "ios")
	require.NoError(t, s.Users.Save(ctx, u))

	u.DisplayName = "Bob"
	u.IsPremium = true
	u.UnlockedScreens = u.TotalScreens
	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	u.SubscriptionExpiry = &exp
	require.NoError(t, s.Users.Save(ctx, u))

	got, err := s.Users.FindByDeviceID(ctx, "dev-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bob", got.DisplayName)
	assert.True(t, got.IsPremium)
	assert.Equal(t, got.TotalScreens, got.UnlockedScreens)
	require.NotNil(t, got.SubscriptionExpiry)
	assert.True(t, exp.Equal(*got.SubscriptionExpiry))
}

func TestUserRepository_FindByEmail_CaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("carol_3", "Carol@Example.com", "dev-3", "macos")
	require.NoError(t, s.Users.Insert(ctx, u))

	got, err := s.Users.FindByEmail(ctx, "CAROL@EXAMPLE.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserRepository_FindByUsername_Exact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("dave_4", "dave@example.com", "dev-4", "ios")
	require.NoError(t, s.Users.Insert(ctx, u))

	got, err := s.Users.FindByUsername(ctx, "dave_4")
	require.NoError(t, err)
	require.NotNil(t, got)

	none, err := s.Users.FindByUsername(ctx, "DAVE_4")
	require.NoError(t, err)
	assert.Nil(t, none, "username match is exact")
}

func TestUserRepository_FindByResetToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("eva_5", "eva@example.com", "dev-5", "ios")
	token := u.GenerateResetToken()
	require.NoError(t, s.Users.Insert(ctx, u))

	got, err := s.Users.FindByResetToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.ResetExpiry)

	// an empty token must not match rows whose reset_token is ''
	none, err := s.Users.FindByResetToken(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUserRepository_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := models.NewUser("frank_6", "frank@example.com", "dev-6", "ios")
	require.NoError(t, s.Users.Insert(ctx, u))
	require.NoError(t, s.Users.Delete(ctx, u.ID))

	got, err := s.Users.FindByDeviceID(ctx, "dev-6")
	require.NoError(t, err)
	assert.Nil(t, got)
}
