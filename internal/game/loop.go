package game

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned by Call after the authority loop has shut down.
var ErrLoopStopped = errors.New("authority loop stopped")

// loop serializes all session mutation onto one goroutine. Steps may be
// posted from timers or connection goroutines; suspension points (timer
// callbacks) are the only places interleaving can occur, so a flag
// check-and-set inside a single step is race-free by construction.
type loop struct {
	calls chan func()
	done  chan struct{}
}

func newLoop() *loop {
	return &loop{
		calls: make(chan func(), 128),
		done:  make(chan struct{}),
	}
}

// run processes posted steps until the context is cancelled.
func (l *loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case fn := <-l.calls:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// post schedules a step without waiting for it. Posts after shutdown are
// dropped.
func (l *loop) post(fn func()) {
	select {
	case <-l.done:
	case l.calls <- fn:
	}
}

// call runs fn on the loop and waits for its result. Never call from within
// a loop step; steps invoke engine methods directly instead.
func (l *loop) call(fn func() error) error {
	result := make(chan error, 1)
	select {
	case <-l.done:
		return ErrLoopStopped
	case l.calls <- func() { result <- fn() }:
	}
	select {
	case <-l.done:
		return ErrLoopStopped
	case err := <-result:
		return err
	}
}
