package sync

import (
	"context"
	"errors"
	"sync"
)

// Terminal dispositions of a download future.
var (
	// ErrStalledDownload reports that the configured number of consecutive
	// requests completed without discovering new work.
	ErrStalledDownload = errors.New("sync: download stalled due to lack of progress")

	// ErrDownloadCancelled reports that the download was cancelled by the
	// caller.
	ErrDownloadCancelled = errors.New("sync: download cancelled")
)

// DownloadFuture is a single-assignment completion cell for one world state
// download. It transitions at most once, from pending to exactly one of
// completed-successfully (nil error), completed-with-error, or cancelled;
// all three are terminal. Continuations registered with OnDone run exactly
// once, on the goroutine that triggers the terminal transition.
type DownloadFuture struct {
	mu         sync.Mutex
	terminal   bool
	err        error
	callbacks  []func(error)
	cancelHook func()

	done chan struct{}
}

func newDownloadFuture() *DownloadFuture {
	return &DownloadFuture{done: make(chan struct{})}
}

// setCancelHook registers the teardown routine invoked by Cancel. It must
// be set before the future is shared across goroutines.
func (f *DownloadFuture) setCancelHook(hook func()) {
	f.cancelHook = hook
}

// Complete moves the future to its terminal state: success when err is nil,
// failure otherwise. Returns true when this call won the transition; losers
// are no-ops.
func (f *DownloadFuture) Complete(err error) bool {
	cbs, won := f.transition(err)
	if !won {
		return false
	}
	close(f.done)
	for _, cb := range cbs {
		cb(err)
	}
	return true
}

// Cancel moves the future to the cancelled state and runs the registered
// teardown hook. The teardown completes before Done is closed, so an
// observer unblocked by the cancellation sees its effects. Returns true
// when this call won the transition.
func (f *DownloadFuture) Cancel() bool {
	cbs, won := f.transition(ErrDownloadCancelled)
	if !won {
		return false
	}
	if f.cancelHook != nil {
		f.cancelHook()
	}
	close(f.done)
	for _, cb := range cbs {
		cb(ErrDownloadCancelled)
	}
	return true
}

// transition attempts the one terminal transition, returning the callbacks
// to run and whether the caller won.
func (f *DownloadFuture) transition(err error) ([]func(error), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminal {
		return nil, false
	}
	f.terminal = true
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	return cbs, true
}

// Terminal returns whether the future has reached a terminal state. It is
// true from the instant the winning transition is decided, which may be
// slightly before Done unblocks.
func (f *DownloadFuture) Terminal() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminal
}

// Cancelled returns whether the future terminated by cancellation.
func (f *DownloadFuture) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminal && errors.Is(f.err, ErrDownloadCancelled)
}

// Err returns the terminal error: nil while pending or on success,
// ErrDownloadCancelled after cancellation, the failure otherwise.
func (f *DownloadFuture) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done returns a channel closed once the future is terminal and, for
// cancellation, once teardown has run.
func (f *DownloadFuture) Done() <-chan struct{} {
	return f.done
}

// OnDone registers a continuation invoked exactly once with the terminal
// error. If the future is already terminal the continuation runs
// immediately on the calling goroutine.
func (f *DownloadFuture) OnDone(cb func(error)) {
	f.mu.Lock()
	if !f.terminal {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	cb(err)
}

// Wait blocks until the future is terminal or the context expires. It
// returns the terminal error, or the context error on expiry.
func (f *DownloadFuture) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return f.Err()
	}
}
