package execstarter_test

import (
	"os/exec"
	"testing"

	"pkt.systems/cmdrun/adapters/execstarter"
)

func TestStarterStartsProcess(t *testing.T) {
	starter := execstarter.Starter{}
	cmd := exec.Command("/bin/sh", "-c", "exit 0")

	if err := starter.Start(cmd); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if cmd.Process == nil {
		t.Fatal("expected a live process after Start")
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestStarterStartFailure(t *testing.T) {
	starter := execstarter.Starter{}
	cmd := exec.Command("/nonexistent/definitely-not-a-binary")

	if err := starter.Start(cmd); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
