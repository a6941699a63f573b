package httpclient

import (
	"context"
	"math/rand"
	"time"
)

// BackoffSchedule computes exponential backoff with a cap, the shape
// required by the search-interest validator (spec.md §4.6: start at 5s,
// double to a 120s cap, up to 3 retries) and reused by any other
// rate-limited provider call that needs the same shape.
type BackoffSchedule struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// Delay returns the backoff delay before retry attempt n (1-indexed),
// doubling from Base and never exceeding Cap.
func (b BackoffSchedule) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > b.Cap {
			return b.Cap
		}
	}
	if d > b.Cap {
		d = b.Cap
	}
	return d
}

// Sleep waits for the computed delay or until ctx is cancelled, whichever
// comes first. A small jitter avoids synchronized retries across workers.
func (b BackoffSchedule) Sleep(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	jitter := time.Duration(rand.Int63n(int64(d) / 10 + 1))
	select {
	case <-time.After(d + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
