// Package models defines the entity records shared by the local store, the
// remote document store and the sync engine.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultUnlockedScreens is the number of screens available without premium.
	DefaultUnlockedScreens = 2
	// DefaultTotalScreens is the total number of screens in the app.
	DefaultTotalScreens = 10

	// FailedLoginThreshold is the number of failed logins that locks the account.
	FailedLoginThreshold = 5
	// LockDuration is how long the account stays locked after the threshold.
	LockDuration = 15 * time.Minute

	// VerificationTokenTTL is the lifetime of an email verification token.
	VerificationTokenTTL = 24 * time.Hour
	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL = time.Hour
)

// User is one installation-bound account. The local store owns the durable
// copy; remote backends hold eventually-consistent mirrors.
type User struct {
	ID       string
	Username string
	// Email is always stored lowercase.
	Email        string
	PasswordHash string
	DeviceID     string
	Platform     string

	CreatedAt time.Time
	UpdatedAt time.Time

	EmailVerified      bool
	VerificationToken  string
	VerificationExpiry *time.Time

	Active       bool
	LastLoginAt  *time.Time
	LastActiveAt time.Time

	IsPremium          bool
	SubscriptionType   string
	SubscriptionExpiry *time.Time
	PromoCodeUsed      string

	// UnlockedScreens never exceeds TotalScreens.
	UnlockedScreens int
	TotalScreens    int
	AdsEnabled      bool

	CurrentSessionID string

	DisplayName string
	AvatarURL   string
	Bio         string
	Preferences map[string]string

	ResetToken  string
	ResetExpiry *time.Time

	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// NewUser constructs a user with safe defaults. The email is normalized to
// lowercase; callers validate inputs with the Valid* helpers beforehand.
func NewUser(username, email, deviceID, platform string) *User {
	now := time.Now().UTC()
	return &User{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           strings.ToLower(email),
		DeviceID:        deviceID,
		Platform:        platform,
		CreatedAt:       now,
		UpdatedAt:       now,
		Active:          true,
		LastActiveAt:    now,
		UnlockedScreens: DefaultUnlockedScreens,
		TotalScreens:    DefaultTotalScreens,
		AdsEnabled:      true,
	}
}

// Clone returns a deep copy safe to hand to background goroutines.
func (u *User) Clone() *User {
	cp := *u
	cp.VerificationExpiry = copyTime(u.VerificationExpiry)
	cp.LastLoginAt = copyTime(u.LastLoginAt)
	cp.SubscriptionExpiry = copyTime(u.SubscriptionExpiry)
	cp.ResetExpiry = copyTime(u.ResetExpiry)
	cp.LockedUntil = copyTime(u.LockedUntil)
	if u.Preferences != nil {
		cp.Preferences = make(map[string]string, len(u.Preferences))
		for k, v := range u.Preferences {
			cp.Preferences[k] = v
		}
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Touch bumps the update and last-active timestamps.
func (u *User) Touch() {
	now := time.Now().UTC()
	u.UpdatedAt = now
	u.LastActiveAt = now
}

// IsLocked reports whether the account is locked out at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PremiumActive reports whether premium features apply at the given instant.
// A nil subscription expiry means a non-expiring unlock.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.SubscriptionExpiry == nil || now.Before(*u.SubscriptionExpiry)
}

// IncrementFailedLogin bumps the failed-login counter. Reaching the
// threshold locks the account for LockDuration. The counter does not reset
// on its own.
func (u *User) IncrementFailedLogin() {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= FailedLoginThreshold {
		until := time.Now().UTC().Add(LockDuration)
		u.LockedUntil = &until
	}
}

// ResetFailedLogin zeroes the counter and clears the lock.
func (u *User) ResetFailedLogin() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}

// RecordSuccessfulLogin stamps login/activity times and resets the
// failed-login state.
func (u *User) RecordSuccessfulLogin() {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.LastActiveAt = now
	u.ResetFailedLogin()
}

// GenerateVerificationToken issues a fresh single-use email verification
// token valid for VerificationTokenTTL and returns it.
func (u *User) GenerateVerificationToken() string {
	token := uuid.NewString()
	expiry := time.Now().UTC().Add(VerificationTokenTTL)
	u.VerificationToken = token
	u.VerificationExpiry = &expiry
	return token
}

// VerifyEmail consumes the verification token. It succeeds only if the token
// matches and the current instant is strictly before expiry; on success the
// token and expiry are cleared atomically. On failure nothing is mutated.
func (u *User) VerifyEmail(token string) bool {
	return u.VerifyEmailAt(token, time.Now().UTC())
}

// VerifyEmailAt is VerifyEmail with an explicit clock.
func (u *User) VerifyEmailAt(token string, now time.Time) bool {
	if u.VerificationToken == "" || token != u.VerificationToken {
		return false
	}
	if u.VerificationExpiry == nil || !now.Before(*u.VerificationExpiry) {
		return false
	}
	u.EmailVerified = true
	u.VerificationToken = ""
	u.VerificationExpiry = nil
	return true
}

// GenerateResetToken issues a fresh single-use password reset token valid
// for ResetTokenTTL and returns it.
func (u *User) GenerateResetToken() string {
	token := uuid.NewString()
	expiry := time.Now().UTC().Add(ResetTokenTTL)
	u.ResetToken = token
	u.ResetExpiry = &expiry
	return token
}

// ResetPassword consumes the reset token and installs the new password hash.
// Same match-and-expiry contract as VerifyEmail; a successful reset also
// resets the failed-login state.
func (u *User) ResetPassword(token, newHash string) bool {
	return u.ResetPasswordAt(token, newHash, time.Now().UTC())
}

// ResetPasswordAt is ResetPassword with an explicit clock.
func (u *User) ResetPasswordAt(token, newHash string, now time.Time) bool {
	if u.ResetToken == "" || token != u.ResetToken {
		return false
	}
	if u.ResetExpiry == nil || !now.Before(*u.ResetExpiry) {
		return false
	}
	u.PasswordHash = newHash
	u.ResetToken = ""
	u.ResetExpiry = nil
	u.ResetFailedLogin()
	return true
}
