package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/AndreyF1/LinguaPulse/internal/repo/redis"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 100, 2)

	ctx := context.Background()
	telegramID := int64(42)

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowTurn(ctx, telegramID)
		if err != nil {
			t.Fatalf("allow turn #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on turn #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowTurn(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow turn #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third turn in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.AllowTurn(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow turn after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 3, 100)

	ctx := context.Background()
	telegramID := int64(7)

	for i := 0; i < 3; i++ {
		if _, allowed, err := limiter.AllowTurn(ctx, telegramID); err != nil || !allowed {
			t.Fatalf("turn #%d should pass: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	retryAfter, allowed, err := limiter.AllowTurn(ctx, telegramID)
	if err != nil {
		t.Fatalf("allow turn #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth turn in minute window")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("retry_after out of range: %d", retryAfter)
	}
}

func TestLimiterDisabledWindows(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 0, 0)

	for i := 0; i < 10; i++ {
		retryAfter, allowed, err := limiter.AllowTurn(context.Background(), 1)
		if err != nil || !allowed || retryAfter != 0 {
			t.Fatalf("disabled limiter must always allow: allowed=%v retry_after=%d err=%v", allowed, retryAfter, err)
		}
	}
}
