package cli

import (
	"os"
	"os/signal"
	"sync"
)

// onCtrlC invokes f once when the process receives an interrupt.
// The returned function stops listening.
func onCtrlC(f func()) func() {
	s := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(s, os.Interrupt)

	go func() {
		select {
		case <-s:
			f()
		case <-done:
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			signal.Stop(s)
			close(done)
		})
	}
}
