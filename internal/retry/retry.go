// Package retry implements bounded retry policies.
package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/steamvault/steamvault/logging"
)

var log = logging.Module("retry")

// AttemptFunc performs an attempt and returns a value (optional, may be nil) and an error.
type AttemptFunc[T any] func() (T, error)

// IsRetriableFunc is a function that determines whether an error is retriable.
type IsRetriableFunc func(err error) bool

// Periodically runs the provided attempt at most count times, waiting a fixed interval between
// attempts, retrying on all errors that are deemed retriable by the provided function.
//
// No wait happens after the final attempt. When all attempts fail the returned error wraps
// the error of the last attempt.
func Periodically[T any](ctx context.Context, clk clockwork.Clock, interval time.Duration, count int, desc string, attempt AttemptFunc[T], isRetriableError IsRetriableFunc) (T, error) {
	var (
		defaultT T
		lastErr  error
	)

	for i := range count {
		v, err := attempt()
		if err == nil || !isRetriableError(err) {
			return v, err
		}

		lastErr = err

		if i == count-1 {
			break
		}

		log(ctx).Debugf("got error %v when %v (#%v), sleeping for %v before retrying", err, desc, i, interval)

		select {
		case <-ctx.Done():
			return defaultT, errors.Wrap(ctx.Err(), desc)
		case <-clk.After(interval):
		}
	}

	if lastErr == nil {
		return defaultT, errors.Errorf("unable to complete %v, no attempts were made", desc)
	}

	return defaultT, errors.Wrapf(lastErr, "unable to complete %v despite %v retries", desc, count)
}

// Always is a retry function that retries all errors.
func Always(err error) bool {
	return true
}
