package engine

import (
	"context"
	"strings"
	"time"

	"github.com/infinitumhq/infinitum/internal/models"
	"github.com/infinitumhq/infinitum/internal/platform"
)

const (
	subscriptionPromo    = "promo"
	subscriptionPurchase = "purchase"

	// premiumGrantDuration is how long a promo or purchase unlock lasts.
	premiumGrantDuration = 365 * 24 * time.Hour
)

// UnlockPremiumWithPromoCode redeems a promo code. Matching against the
// platform allow-list is case-insensitive; an unknown code returns false
// without touching any state. A valid code grants the full premium
// transition and persists it.
func (e *Engine) UnlockPremiumWithPromoCode(ctx context.Context, code string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !promoAllowed(e.platformTag, normalized) {
		e.log.Debug(ctx, "promo code rejected", "code", normalized)
		return false
	}

	err := e.UpdateUser(ctx, func(u *models.User) {
		grantPremium(u, subscriptionPromo)
		u.PromoCodeUsed = normalized
	})
	if err != nil {
		e.log.Warn(ctx, "promo unlock save failed", "error", err)
		return false
	}
	e.log.Info(ctx, "premium unlocked via promo code", "code", normalized)
	return true
}

// PurchasePremium applies the premium transition after a confirmed purchase.
func (e *Engine) PurchasePremium(ctx context.Context) error {
	if err := e.UpdateUser(ctx, func(u *models.User) {
		grantPremium(u, subscriptionPurchase)
	}); err != nil {
		return err
	}
	e.log.Info(ctx, "premium purchased")
	return nil
}

// CanAccess reports whether the screen index is unlocked for the current
// user: screen <= unlocked count, nothing more. It is a pure read; no
// backend is consulted.
func (e *Engine) CanAccess(screen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return false
	}
	return screen <= e.user.UnlockedScreens
}

func promoAllowed(platformTag, code string) bool {
	for _, c := range platform.PromoCodes(platformTag) {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// grantPremium applies the premium transition: all screens unlock, ads turn
// off, and the subscription runs for premiumGrantDuration.
func grantPremium(u *models.User, subscriptionType string) {
	u.IsPremium = true
	u.UnlockedScreens = u.TotalScreens
	u.AdsEnabled = false
	u.SubscriptionType = subscriptionType
	expiry := time.Now().UTC().Add(premiumGrantDuration)
	u.SubscriptionExpiry = &expiry
}
