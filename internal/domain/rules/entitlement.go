package rules

import (
	"time"

	"github.com/AndreyF1/LinguaPulse/internal/domain/catalog"
)

// GrantEntitlement computes the post-purchase credit balance and package
// expiry for a user snapshot. The expiry extends the stored value while it is
// still in the future; a lapsed package restarts from now.
func GrantEntitlement(lessonsLeft int, expiresAt *time.Time, p catalog.Product, now time.Time) (int, time.Time) {
	if lessonsLeft < 0 {
		lessonsLeft = 0
	}
	now = now.UTC()

	base := now
	if expiresAt != nil && expiresAt.UTC().After(now) {
		base = expiresAt.UTC()
	}

	return lessonsLeft + p.Lessons, base.AddDate(0, 0, p.Days)
}
