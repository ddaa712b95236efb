package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/infinitumhq/infinitum/internal/dbx"
	"github.com/infinitumhq/infinitum/internal/models"
)

// UserRepository implements user CRUD and predicate queries over a DBTX.
type UserRepository struct {
	db dbx.DBTX
}

func NewUserRepository(db dbx.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, device_id, platform,
	created_at, updated_at, email_verified, verification_token, verification_expiry,
	active, last_login_at, last_active_at, is_premium, subscription_type,
	subscription_expiry, promo_code_used, unlocked_screens, total_screens,
	ads_enabled, current_session_id, display_name, avatar_url, bio, preferences,
	reset_token, reset_expiry, failed_login_attempts, locked_until`

// Insert adds a new user row. Inserting an existing id fails.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, query, userArgs(u)...)
	return storageErr("insert user", err)
}

// Save upserts the full user row by id.
func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			password_hash = excluded.password_hash,
			device_id = excluded.device_id,
			platform = excluded.platform,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			email_verified = excluded.email_verified,
			verification_token = excluded.verification_token,
			verification_expiry = excluded.verification_expiry,
			active = excluded.active,
			last_login_at = excluded.last_login_at,
			last_active_at = excluded.last_active_at,
			is_premium = excluded.is_premium,
			subscription_type = excluded.subscription_type,
			subscription_expiry = excluded.subscription_expiry,
			promo_code_used = excluded.promo_code_used,
			unlocked_screens = excluded.unlocked_screens,
			total_screens = excluded.total_screens,
			ads_enabled = excluded.ads_enabled,
			current_session_id = excluded.current_session_id,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			preferences = excluded.preferences,
			reset_token = excluded.reset_token,
			reset_expiry = excluded.reset_expiry,
			failed_login_attempts = excluded.failed_login_attempts,
			locked_until = excluded.locked_until`
	_, err := r.db.ExecContext(ctx, query, userArgs(u)...)
	return storageErr("save user", err)
}

// Delete removes the user row by id.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return storageErr("delete user", err)
}

// FindByDeviceID returns the user bound to the device, or nil when absent.
func (r *UserRepository) FindByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE device_id = ?`, deviceID)
}

// FindByEmail matches the email case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email)
}

// FindByUsername matches the username exactly.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// FindByResetToken returns the user holding the given reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query user", err)
	}
	return u, nil
}

func userArgs(u *models.User) []any {
	return []any{
		u.ID, u.Username, u.Email, u.PasswordHash, u.DeviceID, u.Platform,
		u.CreatedAt.UnixNano(), u.UpdatedAt.UnixNano(),
		u.EmailVerified, u.VerificationToken, timePtrArg(u.VerificationExpiry),
		u.Active, timePtrArg(u.LastLoginAt), u.LastActiveAt.UnixNano(),
		u.IsPremium, u.SubscriptionType, timePtrArg(u.SubscriptionExpiry),
		u.PromoCodeUsed, u.UnlockedScreens, u.TotalScreens,
		u.AdsEnabled, u.CurrentSessionID, u.DisplayName, u.AvatarURL, u.Bio,
		encodePrefs(u.Preferences),
		u.ResetToken, timePtrArg(u.ResetExpiry), u.FailedLoginAttempts,
		timePtrArg(u.LockedUntil),
	}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var createdAt, updatedAt, lastActiveAt int64
	var verificationExpiry, lastLoginAt, subscriptionExpiry, resetExpiry, lockedUntil sql.NullInt64
	var prefs string

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DeviceID, &u.Platform,
		&createdAt, &updatedAt,
		&u.EmailVerified, &u.VerificationToken, &verificationExpiry,
		&u.Active, &lastLoginAt, &lastActiveAt,
		&u.IsPremium, &u.SubscriptionType, &subscriptionExpiry,
		&u.PromoCodeUsed, &u.UnlockedScreens, &u.TotalScreens,
		&u.AdsEnabled, &u.CurrentSessionID, &u.DisplayName, &u.AvatarURL, &u.Bio,
		&prefs,
		&u.ResetToken, &resetExpiry, &u.FailedLoginAttempts, &lockedUntil,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt = fromUnixNano(createdAt)
	u.UpdatedAt = fromUnixNano(updatedAt)
	u.LastActiveAt = fromUnixNano(lastActiveAt)
	u.VerificationExpiry = fromNullNano(verificationExpiry)
	u.LastLoginAt = fromNullNano(lastLoginAt)
	u.SubscriptionExpiry = fromNullNano(subscriptionExpiry)
	u.ResetExpiry = fromNullNano(resetExpiry)
	u.LockedUntil = fromNullNano(lockedUntil)
	u.Preferences = decodePrefs(prefs)

	return u, nil
}

func encodePrefs(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}
	b, err := json.Marshal(prefs)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodePrefs(s string) map[string]string {
	if s == "" {
		return nil
	}
	var prefs map[string]string
	if err := json.Unmarshal([]byte(s), &prefs); err != nil {
		return nil
	}
	return prefs
}

func timePtrArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
