package engine

import (
	"time"

	"github.com/infinitumhq/infinitum/internal/models"
)

// mergeRemoteUser overlays the entitlement and profile fields of the remote
// copy onto the local user. Security and account-state fields (password hash,
// verification/reset tokens, failed-login counter, lock) are never merged;
// the local store owns them. The unlocked-screen count is clamped so it never
// exceeds the local total.
func mergeRemoteUser(local, rem *models.User) {
	local.IsPremium = rem.IsPremium
	local.UnlockedScreens = rem.UnlockedScreens
	if local.UnlockedScreens > local.TotalScreens {
		local.UnlockedScreens = local.TotalScreens
	}
	local.AdsEnabled = rem.AdsEnabled
	local.SubscriptionType = rem.SubscriptionType
	local.SubscriptionExpiry = cloneTimePtr(rem.SubscriptionExpiry)
	local.PromoCodeUsed = rem.PromoCodeUsed

	local.DisplayName = rem.DisplayName
	local.AvatarURL = rem.AvatarURL
	local.Bio = rem.Bio
	// a remote copy without preferences does not wipe local ones
	if rem.Preferences != nil {
		prefs := make(map[string]string, len(rem.Preferences))
		for k, v := range rem.Preferences {
			prefs[k] = v
		}
		local.Preferences = prefs
	}
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
