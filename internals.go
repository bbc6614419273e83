//go:build unix

package cmdrun

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// readChunkSize bounds a single stdout delivery.
	readChunkSize = 4096
	// callbackQueueSize bounds pending callbacks per runner. Backpressure
	// keeps at most one output callback in flight; the rest are write
	// completions and the final run completion.
	callbackQueueSize = 16
	// terminateGracePeriod is how long Terminate waits for SIGTERM to work
	// before escalating to SIGKILL.
	terminateGracePeriod = 5 * time.Second
)

func wirePipes(cmd *exec.Cmd) (io.WriteCloser, io.ReadCloser, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	return stdin, stdout, nil
}

// dispatch is the single callback context of a runner. Every output handler
// invocation, write completion, and the run completion execute here, in
// enqueue order, so callers never observe two callbacks of one runner
// concurrently.
func (r *CommandRunner) dispatch(callbacks <-chan func()) {
	for fn := range callbacks {
		fn()
	}
}

// enqueue hands fn to the dispatch goroutine. It reports false before Run
// and once the callback channel has been sealed by finish.
func (r *CommandRunner) enqueue(fn func()) bool {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	if r.callbacks == nil || r.cbClosed {
		return false
	}
	r.callbacks <- fn
	return true
}

// drain is the producer side of the backpressure contract: it reads one chunk
// from the stdout pipe, delivers it, and does not read again until the
// consumer acknowledges. When the pipe closes it reaps the process and
// delivers completion.
func (r *CommandRunner) drain(cmd *exec.Cmd, stdout io.Reader) {
	handler := r.OutputHandler
	buf := make([]byte, readChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 && handler != nil {
			chunk := slices.Clone(buf[:n])
			acked := make(chan struct{})
			var once sync.Once
			ack := func() {
				once.Do(func() { close(acked) })
			}
			if !r.enqueue(func() { handler(chunk, ack) }) {
				break
			}
			<-acked
		}
		if err != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	status := Status{Kind: EXITED, Code: exitCodeFrom(waitErr, cmd.ProcessState)}
	if r.terminated.Load() {
		status = Status{Kind: TERMINATED, Code: status.Code}
	}
	log.WithFields(log.Fields{
		"run_id": r.runID,
		"status": status.String(),
	}).Debug("command finished")
	r.finish(status)
}

// finish records the status and delivers the completion callback exactly
// once, after which the callback channel is sealed: no output handler or
// completion runs after it.
func (r *CommandRunner) finish(status Status) {
	r.finishOnce.Do(func() {
		r.mu.Lock()
		if r.killTimer != nil {
			r.killTimer.Stop()
		}
		if r.graceTimer != nil {
			r.graceTimer.Stop()
		}
		if r.stdin != nil {
			r.stdin.Close()
		}
		r.status = status
		if r.done == nil {
			r.done = make(chan struct{})
		}
		done := r.done
		r.mu.Unlock()

		completion := r.Completion
		r.cbMu.Lock()
		r.cbClosed = true
		r.callbacks <- func() {
			if completion != nil {
				completion(status)
			}
			close(done)
		}
		close(r.callbacks)
		r.cbMu.Unlock()
	})
}

// doneChan lazily creates the channel closed after completion delivery, so
// Wait works whether it is called before or after the run ends. finish
// creates the channel itself when nobody asked for it earlier.
func (r *CommandRunner) doneChan() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		r.done = make(chan struct{})
	}
	return r.done
}

// envSlice flattens an environment map into KEY=VALUE form, sorted so the
// argv is deterministic.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}

// exitCodeFrom extracts a process exit code from a Wait error and state.
func exitCodeFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ProcessState != nil {
		return exitErr.ProcessState.ExitCode()
	}
	return -1
}

// errnoFrom maps a stdin write error to an OS errno for the write completion
// callback. Unknown errors map to EIO.
func errnoFrom(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.As(pathErr.Err, &errno) {
			return int(errno)
		}
	}
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return int(unix.EPIPE)
	}
	return int(unix.EIO)
}
