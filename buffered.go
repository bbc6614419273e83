//go:build unix

package cmdrun

import (
	"bytes"
	"sync"
)

// BufferedCommandRunner is a CommandRunner that accumulates all stdout bytes
// into an in-memory buffer, optionally capped at MaxOutput. It keeps the
// parent backpressure contract: every chunk is acknowledged before the next
// one is read, including after truncation, so the process is never stalled.
type BufferedCommandRunner struct {
	*CommandRunner

	// MaxOutput caps the buffer size in bytes; zero or negative means
	// unbounded. Set before Run.
	MaxOutput int

	mu        sync.Mutex
	buf       bytes.Buffer
	truncated bool
}

// NewBuffered returns a BufferedCommandRunner for command with args, run in
// dir. The output handler is owned by the buffer; replacing it breaks the
// buffering contract.
func NewBuffered(command string, args []string, dir string) *BufferedCommandRunner {
	b := &BufferedCommandRunner{
		CommandRunner: New(command, args, dir),
	}
	b.CommandRunner.OutputHandler = b.consume
	return b
}

// Output returns a copy of the bytes accumulated so far. After completion it
// holds min(produced, MaxOutput) bytes.
func (b *BufferedCommandRunner) Output() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Truncated reports whether the cap discarded any output. Once set it stays
// set for the life of the instance.
func (b *BufferedCommandRunner) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// consume appends what fits and always acknowledges, discarding the excess so
// the process drains to completion even after the cap is hit.
func (b *BufferedCommandRunner) consume(data []byte, ack func()) {
	defer ack()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MaxOutput > 0 {
		remaining := b.MaxOutput - b.buf.Len()
		if remaining <= 0 {
			b.truncated = true
			return
		}
		if len(data) > remaining {
			b.buf.Write(data[:remaining])
			b.truncated = true
			return
		}
	}
	b.buf.Write(data)
}
