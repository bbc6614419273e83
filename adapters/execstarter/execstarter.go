package execstarter

import (
	"os/exec"

	"pkt.systems/cmdrun/port"
)

// Starter creates processes using os/exec directly.
type Starter struct{}

// Start starts the command without waiting for it.
func (Starter) Start(cmd *exec.Cmd) error {
	return cmd.Start()
}

// Default is a shared instance of Starter.
var Default port.CommandStarter = Starter{}
