package mockstarter

import (
	"os/exec"
	"slices"
	"sync"

	"pkt.systems/cmdrun/port"
)

// Behavior represents a single process-start attempt for the mock starter.
type Behavior func(cmd *exec.Cmd) error

// Starter is a thread-safe mock implementation of port.CommandStarter.
type Starter struct {
	mu        sync.Mutex
	behaviors []Behavior
	Calls     int
	Paths     []string
}

var _ port.CommandStarter = (*Starter)(nil)

// New constructs a Starter that will invoke behaviors sequentially for each
// call. When the queue is exhausted, Start succeeds without side effects.
func New(behaviors ...Behavior) *Starter {
	return &Starter{behaviors: slices.Clone(behaviors)}
}

// Start records the call metadata and dispatches to the next behavior.
func (s *Starter) Start(cmd *exec.Cmd) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Paths = append(s.Paths, cmd.Path)

	if len(s.behaviors) == 0 {
		return nil
	}
	behavior := s.behaviors[0]
	s.behaviors = s.behaviors[1:]
	return behavior(cmd)
}

// Remaining returns the number of queued behaviors not yet consumed.
func (s *Starter) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.behaviors)
}
