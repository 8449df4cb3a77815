//go:build !windows
// +build !windows

package pty

import (
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_RunsUnderPTYAndReports(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, err := Spawn(Spec{Command: []string{"sh", "-c", "printf hello"}, Cols: 40, Rows: 6})
	require.NoError(err)
	require.NotZero(c.Pid())
	assert.NotEmpty(c.ID)
	t.Cleanup(func() { _ = c.ClosePTY() })

	var out []byte
	buf := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := c.TryRead(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		require.NoError(err)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Contains(string(out), "hello")

	require.Eventually(func() bool {
		exited, status, err := c.TryWait()
		return err == nil && exited && status.Code == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSpawn_MissingBinaryFails(t *testing.T) {
	_, err := Spawn(Spec{Command: []string{"definitely-not-a-real-binary-4d7f"}})
	assert.Error(t, err)
}

func TestSpawn_EmptyCommandFails(t *testing.T) {
	_, err := Spawn(Spec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty command")
}

func TestChild_WriteReachesSlave(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, err := Spawn(Spec{Command: []string{"sh", "-c", `read x; printf "got:%s" "$x"`}, Cols: 40, Rows: 6})
	require.NoError(err)
	t.Cleanup(func() {
		_ = c.Signal(syscall.SIGKILL)
		_ = c.ClosePTY()
	})

	time.Sleep(200 * time.Millisecond) // let the shell reach read
	_, err = c.Write([]byte("hi\r"))
	require.NoError(err)

	var out []byte
	buf := make([]byte, 1024)
	require.Eventually(func() bool {
		n, _ := c.TryRead(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		return strings.Contains(string(out), "got:hi")
	}, 5*time.Second, 5*time.Millisecond)
	assert.Contains(string(out), "got:hi")
}

func TestChild_SignalTerminates(t *testing.T) {
	require := require.New(t)

	c, err := Spawn(Spec{Command: []string{"sleep", "60"}})
	require.NoError(err)
	t.Cleanup(func() { _ = c.ClosePTY() })

	require.NoError(c.Signal(syscall.SIGTERM))
	require.Eventually(func() bool {
		exited, status, err := c.TryWait()
		return err == nil && exited && status.Signal == syscall.SIGTERM
	}, 5*time.Second, 10*time.Millisecond)
}

func TestChild_ResizeDeliversNewSize(t *testing.T) {
	require := require.New(t)

	c, err := Spawn(Spec{Command: []string{"sleep", "60"}, Cols: 80, Rows: 24})
	require.NoError(err)
	t.Cleanup(func() {
		_ = c.Signal(syscall.SIGKILL)
		_ = c.ClosePTY()
	})

	require.NoError(c.Resize(120, 40))
}

func TestChildEnv_ForcedVarsAndOverrides(t *testing.T) {
	assert := assert.New(t)

	env := childEnv(nil, 120, 40)
	assert.Contains(env, "FORCE_COLOR=1")
	assert.Contains(env, "COLUMNS=120")
	assert.Contains(env, "LINES=40")

	// a caller-supplied value suppresses the forced one
	env = childEnv([]string{"FORCE_COLOR=0"}, 80, 24)
	assert.Contains(env, "FORCE_COLOR=0")
	assert.NotContains(env, "FORCE_COLOR=1")
}

func TestExitStatus_String(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("exit status 0", ExitStatus{}.String())
	assert.Equal("exit status 3", ExitStatus{Code: 3}.String())
	assert.Equal("signal: terminated", ExitStatus{Signal: syscall.SIGTERM}.String())
}
