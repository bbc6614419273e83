//go:build unix

package cmdrun

import "fmt"

// Kind classifies how a run ended.
type Kind int

const (
	// EXITED means the process ran and exited on its own; Status.Code
	// holds its exit code (zero or not).
	EXITED Kind = iota
	// FAILED means the process could not be spawned at all; Status.Err
	// holds the underlying error.
	FAILED
	// TERMINATED means the process was killed by Terminate or a timeout.
	TERMINATED
)

func (k Kind) String() string {
	switch k {
	case EXITED:
		return "exited"
	case FAILED:
		return "failed to start"
	case TERMINATED:
		return "terminated"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Status is the completion value delivered exactly once per run.
type Status struct {
	Kind Kind
	Code int   // exit code, meaningful when Kind == EXITED
	Err  error // spawn error when Kind == FAILED
}

// Success reports whether the process ran to completion and exited zero.
func (s Status) Success() bool {
	return s.Kind == EXITED && s.Code == 0
}

func (s Status) String() string {
	switch s.Kind {
	case EXITED:
		return fmt.Sprintf("exited with code %d", s.Code)
	case FAILED:
		return fmt.Sprintf("failed to start: %v", s.Err)
	default:
		return s.Kind.String()
	}
}
