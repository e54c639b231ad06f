package retry

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Backoff describes an exponential retry schedule.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Jitter   float64
}

// Startup is used when dialling Postgres and Redis at boot.
var Startup = Backoff{
	Attempts: 5,
	Initial:  500 * time.Millisecond,
	Max:      8 * time.Second,
	Jitter:   0.1,
}

// Do runs op until it succeeds, attempts run out or ctx ends. It returns the
// last error from op, or ctx.Err() if cancelled while waiting.
func Do(ctx context.Context, b Backoff, log *zap.Logger, what string, op func(context.Context) error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	delay := b.Initial
	var err error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = op(ctx); err == nil {
			if attempt > 1 {
				log.Info("connected after retry", zap.String("target", what), zap.Int("attempt", attempt))
			}
			return nil
		}
		if attempt == b.Attempts {
			break
		}

		wait := jitter(delay, b.Jitter)
		log.Warn("connect failed, retrying",
			zap.String("target", what),
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	j := time.Duration(rand.Float64() * float64(d) * fraction)
	if rand.Intn(2) == 0 {
		return d - j
	}
	return d + j
}
