package port

import (
	"os/exec"
)

// CommandStarter abstracts process creation so starters can be plugged in
// across packages without depending on a specific adapter implementation.
// Production code uses adapters/execstarter; tests use adapters/mockstarter.
type CommandStarter interface {
	Start(cmd *exec.Cmd) error
}
