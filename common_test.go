//go:build unix

package cmdrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReturnsStatus(t *testing.T) {
	r := New("/bin/sh", []string{"-c", "exit 7"}, "")
	r.Run()
	st := r.Wait()
	assert.Equal(t, EXITED, st.Kind)
	assert.Equal(t, 7, st.Code)
}

func TestWaitIsRepeatable(t *testing.T) {
	r := New("/bin/true", nil, "")
	r.Run()
	first := r.Wait()
	second := r.Wait()
	assert.Equal(t, first, second)
}

func TestWaitWithContextCancellation(t *testing.T) {
	r := New("sleep", []string{"30"}, "")
	r.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	st := r.WaitWithContext(ctx)
	require.ErrorIs(t, st.Err, context.DeadlineExceeded)

	// The run is still live and can be ended normally.
	r.Terminate()
	st = r.WaitWithContext(context.Background())
	assert.Equal(t, TERMINATED, st.Kind)
}

func TestWaitWithNilContext(t *testing.T) {
	r := New("/bin/true", nil, "")
	r.Run()
	st := r.WaitWithContext(nil)
	assert.Equal(t, EXITED, st.Kind)
}
