// Package retry applies bounded retries with exponential backoff to
// fallible browser operations. Only transient browser faults are retried;
// everything else fails fast.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/gfribergo93/nexxt-scraper/browser"
)

// Do runs op up to maxAttempts times, waiting base<<attempt between
// attempts. A non-transient error propagates immediately. After the final
// attempt the original error is returned unwrapped; degrading state on it is
// the caller's job.
func Do(ctx context.Context, logger *slog.Logger, label string, maxAttempts int, base time.Duration, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !browser.IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		wait := base << uint(attempt)
		logger.Warn("transient fault, backing off",
			"op", label, "attempt", attempt, "max_attempts", maxAttempts,
			"wait", wait.String(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
