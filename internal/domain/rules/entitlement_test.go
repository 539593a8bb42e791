package rules

import (
	"testing"
	"time"

	"github.com/AndreyF1/LinguaPulse/internal/domain/catalog"
)

func TestGrantExtendsUnexpiredPackage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(48 * time.Hour)

	product, err := catalog.Resolve("month")
	if err != nil {
		t.Fatalf("resolve month product: %v", err)
	}

	lessons, newExpiry := GrantEntitlement(5, &expires, product, now)
	if lessons != 35 {
		t.Fatalf("unexpected lessons: got %d want 35", lessons)
	}

	want := now.Add(48 * time.Hour).AddDate(0, 0, 30)
	if !newExpiry.Equal(want) {
		t.Fatalf("expiry not additive on unexpired time: got %s want %s",
			newExpiry.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestGrantRestartsLapsedPackage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 0, -5)

	product, err := catalog.Resolve("month")
	if err != nil {
		t.Fatalf("resolve month product: %v", err)
	}

	_, newExpiry := GrantEntitlement(0, &expires, product, now)
	want := now.AddDate(0, 0, 30)
	if !newExpiry.Equal(want) {
		t.Fatalf("lapsed package must restart from now: got %s want %s",
			newExpiry.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}

func TestGrantWithNoPriorExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	product, err := catalog.Resolve("mini")
	if err != nil {
		t.Fatalf("resolve mini product: %v", err)
	}

	lessons, newExpiry := GrantEntitlement(0, nil, product, now)
	if lessons != 3 {
		t.Fatalf("unexpected lessons: got %d want 3", lessons)
	}
	if !newExpiry.Equal(now.AddDate(0, 0, 3)) {
		t.Fatalf("unexpected expiry: %s", newExpiry.Format(time.RFC3339))
	}
}

func TestGrantClampsNegativeBalance(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	product, err := catalog.Resolve("mini")
	if err != nil {
		t.Fatalf("resolve mini product: %v", err)
	}

	lessons, _ := GrantEntitlement(-4, nil, product, now)
	if lessons != 3 {
		t.Fatalf("negative balance must be clamped before grant: got %d", lessons)
	}
}
