package retry

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/steamvault/steamvault/internal/testlogging"
)

var (
	errRetriable    = errors.New("retriable")
	errNonRetriable = errors.New("non-retriable")
)

func isRetriable(e error) bool {
	return errors.Is(e, errRetriable)
}

// instantClock is a real clock whose timers fire immediately.
type instantClock struct {
	clockwork.Clock
}

func (instantClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}

	return ch
}

func TestPeriodically(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc      string
		f         func(cnt *int) (int, error)
		want      int
		wantCalls int
		wantError bool
	}{
		{"success", func(cnt *int) (int, error) { *cnt++; return 3, nil }, 3, 1, false},
		{"retriable-succeeds", func(cnt *int) (int, error) {
			*cnt++
			if *cnt < 3 {
				return 0, errRetriable
			}
			return 4, nil
		}, 4, 3, false},
		{"retriable-never-succeeds", func(cnt *int) (int, error) { *cnt++; return 0, errRetriable }, 0, 3, true},
		{"non-retriable", func(cnt *int) (int, error) { *cnt++; return 0, errNonRetriable }, 0, 1, true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			ctx := testlogging.Context(t)
			cnt := 0

			got, err := Periodically(ctx, instantClock{clockwork.NewRealClock()}, time.Second, 3, tc.desc, func() (int, error) {
				return tc.f(&cnt)
			}, isRetriable)

			require.Equal(t, tc.wantError, err != nil, "err: %v", err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantCalls, cnt)
		})
	}
}

func TestPeriodicallyExhaustionWrapsLastError(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	_, err := Periodically(ctx, instantClock{clockwork.NewRealClock()}, time.Second, 3, "create folder", func() (any, error) {
		return nil, errRetriable
	}, Always)

	require.ErrorIs(t, err, errRetriable)
	require.Contains(t, err.Error(), "unable to complete create folder despite 3 retries")
}

func TestPeriodicallyWaitsBetweenAttempts(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	fc := clockwork.NewFakeClock()
	start := fc.Now()

	var attemptTimes []time.Time

	done := make(chan error, 1)

	go func() {
		_, err := Periodically(ctx, fc, time.Second, 3, "wait", func() (any, error) {
			attemptTimes = append(attemptTimes, fc.Now())
			return nil, errRetriable
		}, isRetriable)
		done <- err
	}()

	for range 2 {
		fc.BlockUntil(1)
		fc.Advance(time.Second)
	}

	require.Error(t, <-done)
	require.Equal(t, []time.Time{start, start.Add(time.Second), start.Add(2 * time.Second)}, attemptTimes)
}

func TestPeriodicallyContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testlogging.Context(t))
	fc := clockwork.NewFakeClock()

	done := make(chan error, 1)

	go func() {
		_, err := Periodically(ctx, fc, time.Second, 3, "cancelled", func() (any, error) {
			return nil, errRetriable
		}, isRetriable)
		done <- err
	}()

	fc.BlockUntil(1)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
}
