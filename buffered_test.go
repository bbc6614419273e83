//go:build unix

package cmdrun

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedCapturesAllOutput(t *testing.T) {
	b := NewBuffered("/bin/sh", []string{"-c", "printf 'hello world'"}, "")
	b.Run()
	st := waitStatus(t, b.CommandRunner)
	require.Equal(t, EXITED, st.Kind)
	require.Equal(t, 0, st.Code)
	assert.Equal(t, "hello world", string(b.Output()))
	assert.False(t, b.Truncated())
}

func TestBufferedTruncatesAtMaxOutput(t *testing.T) {
	b := NewBuffered("/bin/sh", []string{"-c", "head -c 500 /dev/zero"}, "")
	b.MaxOutput = 100
	b.Run()
	st := waitStatus(t, b.CommandRunner)
	require.Equal(t, EXITED, st.Kind)
	assert.Equal(t, 0, st.Code, "process must drain to completion after truncation")
	assert.Len(t, b.Output(), 100)
	assert.True(t, b.Truncated())
}

func TestBufferedExactFitIsNotTruncated(t *testing.T) {
	b := NewBuffered("/bin/sh", []string{"-c", "printf '0123456789'"}, "")
	b.MaxOutput = 10
	b.Run()
	st := waitStatus(t, b.CommandRunner)
	require.Equal(t, EXITED, st.Kind)
	assert.Equal(t, "0123456789", string(b.Output()))
	assert.False(t, b.Truncated())
}

func TestBufferedUnboundedWithoutMax(t *testing.T) {
	b := NewBuffered("/bin/sh", []string{"-c", "head -c 20000 /dev/zero"}, "")
	b.Run()
	st := waitStatus(t, b.CommandRunner)
	require.Equal(t, EXITED, st.Kind)
	assert.Equal(t, bytes.Repeat([]byte{0}, 20000), b.Output())
	assert.False(t, b.Truncated())
}

func TestBufferedTruncationSpansChunks(t *testing.T) {
	// Two writes with a flush between them so the cap is crossed mid-run.
	b := NewBuffered("/bin/sh", []string{"-c", "printf aaaa; sleep 0.05; printf bbbb"}, "")
	b.MaxOutput = 6
	b.Run()
	st := waitStatus(t, b.CommandRunner)
	require.Equal(t, EXITED, st.Kind)
	assert.Equal(t, "aaaabb", string(b.Output()))
	assert.True(t, b.Truncated())
}
