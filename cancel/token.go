// Package cancel implements the cooperative stop flag shared by all components of a vault operation.
package cancel

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrCancelled is returned by operations that observed a stopped Token.
var ErrCancelled = errors.New("operation cancelled")

// Token is a write-once stop flag polled by long-running operations at safe checkpoints.
// It is safe to Stop a Token from a different goroutine than the one polling it.
//
// There is no way to reset a Token, a new one must be created for each operation.
type Token struct {
	stopped atomic.Bool
}

// NewToken returns a Token that has not been stopped.
func NewToken() *Token {
	return &Token{}
}

// Stop requests the operation to stop at its next checkpoint.
func (t *Token) Stop() {
	t.stopped.Store(true)
}

// Stopped returns true after Stop has been called. A nil Token is never stopped.
func (t *Token) Stopped() bool {
	if t == nil {
		return false
	}

	return t.stopped.Load()
}

// Check returns ErrCancelled if the token has been stopped.
func (t *Token) Check() error {
	if t.Stopped() {
		return ErrCancelled
	}

	return nil
}

// IsCancelled returns true if the error signals cooperative cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
