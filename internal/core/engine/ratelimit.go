package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenBucket gates how many API calls may start per second.
//
// Tokens refill continuously at a fixed rate up to the burst capacity and each
// admitted call consumes one token. All token accounting is serialized under a
// mutex; the lock is never held while a caller sleeps.
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time

	// Clock overrides the time source for tests.
	Clock func() time.Time

	// Sleep overrides the delay function for tests. It must honor ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewTokenBucket validates the limiter configuration and returns a full bucket.
func NewTokenBucket(ratePerSecond float64, burstCapacity int) (*TokenBucket, error) {
	if ratePerSecond <= 0 {
		return nil, fmt.Errorf("rate per second must be positive, got %v", ratePerSecond)
	}
	if burstCapacity < 1 {
		return nil, fmt.Errorf("burst capacity must be at least 1, got %d", burstCapacity)
	}

	return &TokenBucket{
		rate:   ratePerSecond,
		burst:  float64(burstCapacity),
		tokens: float64(burstCapacity),
	}, nil
}

// TryAcquire consumes a token if one is available. It never blocks.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Acquire blocks the calling worker until a token is available or ctx is done.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		b.mu.Lock()
		now := b.now()
		b.refillLocked(now)
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Tokens reports the currently available tokens after refill.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	return b.tokens
}

func (b *TokenBucket) refillLocked(now time.Time) {
	if b.lastRefill.IsZero() {
		b.lastRefill = now
		return
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}

	b.tokens += elapsed.Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastRefill = now
}

func (b *TokenBucket) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

func (b *TokenBucket) sleep(ctx context.Context, d time.Duration) error {
	if b != nil && b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
