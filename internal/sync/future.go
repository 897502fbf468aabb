package sync

import "sync"

// Result reports the outcome of an asynchronous push.
type Result struct {
	Err error
}

// Future delivers a push result exactly once. Completion is idempotent: a
// duplicate completion is a no-op. The channel is buffered so a result with
// no observer is dropped rather than leaking the completing goroutine.
type Future struct {
	once sync.Once
	done chan Result
}

func newFuture() *Future {
	return &Future{done: make(chan Result, 1)}
}

// completedFuture returns a future that already resolved with err.
func completedFuture(err error) *Future {
	f := newFuture()
	f.complete(err)
	return f
}

func (f *Future) complete(err error) {
	f.once.Do(func() { f.done <- Result{Err: err} })
}

// Done returns the completion channel.
func (f *Future) Done() <-chan Result {
	return f.done
}

// Wait blocks until the future resolves and returns its error.
func (f *Future) Wait() error {
	r := <-f.done
	// Re-buffer so later waiters see the same result.
	f.done <- r
	return r.Err
}
