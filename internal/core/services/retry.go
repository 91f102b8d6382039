package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// RetryPolicy is bounded exponential backoff with jitter.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps any single delay.
	MaxBackoff time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Jitter is the +/- fraction applied to each delay (0.25 = ±25%).
	Jitter float64
}

// NewRetryPolicy builds the ingestion step policy from settings.
func NewRetryPolicy(s domain.IngestionSettings) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    s.MaxAttempts,
		InitialBackoff: s.InitialBackoff,
		MaxBackoff:     s.MaxBackoff,
		Multiplier:     2.0,
		Jitter:         0.25,
	}
}

// Backoff returns the delay after the given 1-based attempt failed.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	backoff := float64(p.InitialBackoff)
	for i := 1; i < attempt && backoff < float64(p.MaxBackoff); i++ {
		backoff *= mult
	}
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	if p.Jitter > 0 {
		backoff += backoff * p.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter only
	}
	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}
	return time.Duration(backoff)
}

// ShouldRetry reports whether another attempt is allowed after attempt
// failed with err.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	return attempt < p.MaxAttempts && domain.IsRetryable(err)
}

// Do runs fn until it succeeds, fails permanently, exhausts the policy or ctx
// ends. It returns the last error and the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, log *logger.Logger, op string, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !p.ShouldRetry(attempt, lastErr) {
			if attempt >= p.MaxAttempts {
				log.Warn("%s: all %d attempts failed: %v", op, attempt, lastErr)
			}
			return attempt, lastErr
		}

		delay := p.Backoff(attempt)
		log.Debug("%s: attempt %d failed, retrying in %s: %v", op, attempt, delay, lastErr)
		if err := sleep(ctx, delay); err != nil {
			return attempt, lastErr
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
