//go:build unix

package cmdrun

import "context"

// Wait blocks until the run completes and returns its Status. It is a
// convenience for callers that do not want callback style; the Completion
// callback, when set, still fires first. Calling Wait from inside one of the
// runner's own callbacks deadlocks, since callbacks and the completion share
// one goroutine.
func (r *CommandRunner) Wait() Status {
	return r.WaitWithContext(context.Background())
}

// WaitWithContext blocks until the run completes or ctx is cancelled.
// Cancellation returns a Status whose Err is ctx.Err(); the run itself keeps
// going and still delivers its completion callback.
func (r *CommandRunner) WaitWithContext(ctx context.Context) Status {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-r.doneChan():
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.status
	case <-ctx.Done():
		return Status{Err: ctx.Err()}
	}
}
