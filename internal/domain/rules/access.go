package rules

import (
	"time"

	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
)

// HasAccess decides whether a capability is usable for the given entitlement
// fields at the given instant. All comparisons are in UTC.
func HasAccess(kind enums.Capability, lessonsLeft int, expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	active := expiresAt.UTC().After(now.UTC())

	switch kind {
	case enums.CapabilityAudio:
		return active && lessonsLeft > 0
	case enums.CapabilityText:
		return active
	default:
		return false
	}
}

// PackageLapsed reports whether a stored expiry lies in the past.
func PackageLapsed(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.UTC().After(now.UTC())
}
