//go:build unix

// Package cmdrun wraps a single external-process invocation: spawn, stream
// stdout to a consumer with acknowledgment backpressure, write to stdin,
// enforce a timeout, and terminate. Completion is reported exactly once per
// run through a callback, under every failure path. Example:
//
//	r := cmdrun.New("/usr/bin/uname", []string{"-a"}, "")
//	r.OutputHandler = func(data []byte, ack func()) {
//		os.Stdout.Write(data)
//		ack()
//	}
//	r.Completion = func(status cmdrun.Status) {
//		log.Printf("done: %s", status)
//	}
//	r.Run()
package cmdrun

import (
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"pkt.systems/cmdrun/adapters/execstarter"
	"pkt.systems/cmdrun/port"
)

// Runner is the minimal capability shared by runner variants: set a
// completion callback and start the run.
type Runner interface {
	Run()
	SetCompletion(fn func(Status))
}

var (
	_ Runner = (*CommandRunner)(nil)
	_ Runner = (*BufferedCommandRunner)(nil)
)

// CommandRunner owns one external-process invocation. Configure the fields,
// then call Run (or RunWithTimeout) once; re-running the same instance is a
// logged no-op. All callbacks of one runner are delivered sequentially on a
// single goroutine, so state mutated only from them needs no locking.
type CommandRunner struct {
	Command string
	Args    []string
	Dir     string
	// Env replaces the process environment when non-nil; nil inherits the
	// caller's environment.
	Env map[string]string

	// OutputHandler receives each chunk of stdout together with an ack
	// func. The next chunk is not read from the pipe until ack is called;
	// that is the backpressure contract. Nil means output is drained and
	// discarded without backpressure.
	OutputHandler func(data []byte, ack func())
	// Completion is invoked exactly once per run, after the last output
	// chunk has been delivered.
	Completion func(Status)

	// Starter abstracts process creation; nil uses execstarter.Default.
	Starter port.CommandStarter

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	started     bool
	runID       string
	done        chan struct{}
	status      Status
	cbMu        sync.Mutex
	callbacks   chan func()
	cbClosed    bool
	finishOnce  sync.Once
	killTimer   *time.Timer
	graceTimer  *time.Timer
	terminated  atomic.Bool
	terminating atomic.Bool
}

// New returns a CommandRunner for command with args, run in dir (empty dir
// means the caller's working directory).
func New(command string, args []string, dir string) *CommandRunner {
	return &CommandRunner{
		Command: command,
		Args:    args,
		Dir:     dir,
	}
}

// SetCompletion implements Runner.
func (r *CommandRunner) SetCompletion(fn func(Status)) {
	r.Completion = fn
}

// Run spawns the configured process and returns immediately. Output and
// completion are delivered through the configured callbacks; a spawn failure
// is reported as a FAILED completion, never as a synchronous error.
func (r *CommandRunner) Run() {
	r.start(0)
}

// RunWithTimeout behaves like Run but terminates the process if it has not
// exited after timeout. The resulting completion Status has Kind TERMINATED.
func (r *CommandRunner) RunWithTimeout(timeout time.Duration) {
	r.start(timeout)
}

// Write asynchronously writes data to the process standard input. completion,
// if non-nil, is invoked exactly once with the number of bytes written and an
// OS errno (zero on success). Concurrent callers must serialize their own
// writes; a write failure does not end the run.
func (r *CommandRunner) Write(data []byte, completion func(n int, errno int)) {
	r.mu.Lock()
	stdin := r.stdin
	r.mu.Unlock()
	go func() {
		var n int
		var code int
		if stdin == nil {
			code = int(unix.EBADF)
		} else {
			var err error
			n, err = stdin.Write(data)
			if err != nil {
				code = errnoFrom(err)
			}
		}
		if completion == nil {
			return
		}
		fn := func() { completion(n, code) }
		if !r.enqueue(fn) {
			// Callback context already drained (run completed); deliver
			// out of band rather than dropping the completion.
			go fn()
		}
	}()
}

// Terminate sends SIGTERM to the process if it is still running, escalating
// to SIGKILL after a grace period so the run always makes forward progress.
// It is idempotent and safe to call from any goroutine, including from within
// output or completion callbacks. A no-op before Run or after exit.
func (r *CommandRunner) Terminate() {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if !r.terminating.CompareAndSwap(false, true) {
		return
	}
	r.terminated.Store(true)
	log.WithFields(log.Fields{
		"run_id": r.runID,
		"pid":    cmd.Process.Pid,
	}).Debug("terminating command")
	if err := cmd.Process.Signal(unix.SIGTERM); err != nil {
		// Already gone; Wait in the drain goroutine reaps it.
		return
	}
	proc := cmd.Process
	r.mu.Lock()
	r.graceTimer = time.AfterFunc(terminateGracePeriod, func() {
		proc.Signal(unix.SIGKILL)
	})
	r.mu.Unlock()
}

// RunID returns the identifier assigned to this invocation at Run, empty
// before Run is called. It appears in every log entry for the run.
func (r *CommandRunner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *CommandRunner) start(timeout time.Duration) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		log.WithFields(log.Fields{
			"run_id":  r.runID,
			"command": r.Command,
		}).Warn("run called twice on the same runner; ignored")
		return
	}
	r.started = true
	r.runID = uuid.New().String()
	cb := make(chan func(), callbackQueueSize)
	r.cbMu.Lock()
	r.callbacks = cb
	r.cbMu.Unlock()
	go r.dispatch(cb)

	cmd := exec.Command(r.Command, r.Args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = envSlice(r.Env)
	}
	stdin, stdout, err := wirePipes(cmd)
	if err != nil {
		r.mu.Unlock()
		r.finish(Status{Kind: FAILED, Err: err})
		return
	}

	starter := r.Starter
	if starter == nil {
		starter = execstarter.Default
	}
	log.WithFields(log.Fields{
		"run_id":  r.runID,
		"command": r.Command,
		"args":    r.Args,
		"dir":     r.Dir,
	}).Debug("starting command")
	if err := starter.Start(cmd); err != nil {
		r.mu.Unlock()
		log.WithFields(log.Fields{
			"run_id":  r.runID,
			"command": r.Command,
		}).WithError(err).Error("command failed to start")
		r.finish(Status{Kind: FAILED, Err: err})
		return
	}
	r.cmd = cmd
	r.stdin = stdin
	if timeout > 0 {
		r.killTimer = time.AfterFunc(timeout, r.Terminate)
	}
	r.mu.Unlock()

	go r.drain(cmd, stdout)
}
