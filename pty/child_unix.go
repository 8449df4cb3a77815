//go:build !windows
// +build !windows

package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	ptylib "github.com/creack/pty"
	"github.com/rs/xid"
	"golang.org/x/sys/unix"

	"github.com/devmux/devmux"
)

// master wraps the controlling side of a child's pseudo terminal with a
// read/write mutex so that resizing, reading and closing never race.
// See https://github.com/creack/pty/issues/21 for the EIO behavior
// normalized in readErr.
type master struct {
	*os.File
	sync.RWMutex
}

func (m *master) Setsize(cols, rows int) error {
	m.RLock()
	defer m.RUnlock()

	return ptylib.Setsize(m.File, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// TryRead performs one non-blocking read from the master. n is 0 with a
// nil error when no output is pending. A read from a master whose slave
// side is gone returns io.EOF.
func (m *master) TryRead(p []byte) (n int, err error) {
	m.RLock()
	defer m.RUnlock()

	// File.Fd would switch the descriptor back to blocking mode, so the
	// read goes through the raw connection and returns after one attempt.
	rc, err := m.SyscallConn()
	if err != nil {
		return 0, err
	}
	var rerr error
	if err := rc.Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), p)
		return true
	}); err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, readErr(rerr)
}

func (m *master) Write(p []byte) (n int, err error) {
	m.RLock()
	defer m.RUnlock()

	return m.File.Write(p)
}

func (m *master) Close() error {
	m.Lock()
	defer m.Unlock()

	return m.File.Close()
}

// readErr normalizes master-read errors. The kernel returns EIO from a
// master whose slave has no open descriptors left, which simply means
// the child is gone; EAGAIN means no data yet and EINTR an interrupted
// attempt.
func readErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == unix.EAGAIN, err == unix.EINTR:
		return nil
	case err == unix.EIO:
		return io.EOF
	}
	if pathErr, ok := err.(*os.PathError); ok && pathErr.Err == syscall.EIO {
		return io.EOF
	}
	return err
}

// Child is a process running under its own pseudo terminal.
type Child struct {
	ID        string
	Command   []string
	StartedAt time.Time

	cmd    *exec.Cmd
	master *master
}

// Spawn starts spec's command under a fresh PTY sized to spec, with the
// terminal environment forced in. The master is switched to non-blocking
// mode so the caller's loop can poll it.
func Spawn(spec Spec) (*Child, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("spawn: empty command")
	}
	cols, rows := spec.Cols, spec.Rows
	if cols < 1 {
		cols = devmux.DefaultCols
	}
	if rows < 1 {
		rows = devmux.DefaultRows
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = childEnv(spec.Env, cols, rows)

	f, err := ptylib.StartWithSize(cmd, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", strings.Join(spec.Command, " "), err)
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		_ = f.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("spawn %q: set nonblocking: %w", spec.Command[0], err)
	}

	return &Child{
		ID:        xid.New().String(),
		Command:   spec.Command,
		StartedAt: time.Now(),
		cmd:       cmd,
		master:    &master{File: f},
	}, nil
}

// childEnv builds the child environment: the parent environment, then
// the forced terminal variables, then the caller's extras, which win.
func childEnv(extra []string, cols, rows int) []string {
	env := os.Environ()
	forced := []string{
		devmux.EnvForceColor + "=1",
		devmux.EnvColumns + "=" + strconv.Itoa(cols),
		devmux.EnvLines + "=" + strconv.Itoa(rows),
	}
	for _, kv := range forced {
		if !envHas(extra, kv) {
			env = append(env, kv)
		}
	}
	return append(env, extra...)
}

func envHas(env []string, kv string) bool {
	key := kv[:strings.IndexByte(kv, '=')+1]
	for _, e := range env {
		if strings.HasPrefix(e, key) {
			return true
		}
	}
	return false
}

// Pid returns the child's process id, or 0 when it never started.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// TryRead polls the master for output without blocking.
func (c *Child) TryRead(p []byte) (int, error) { return c.master.TryRead(p) }

// Write sends input bytes to the child's terminal.
func (c *Child) Write(p []byte) (int, error) { return c.master.Write(p) }

// Resize changes the PTY dimensions, delivering SIGWINCH to the child.
func (c *Child) Resize(cols, rows int) error { return c.master.Setsize(cols, rows) }

// Signal delivers sig to the child process itself.
func (c *Child) Signal(sig syscall.Signal) error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Signal(sig)
}

// TryWait polls for child exit without blocking. When the child has
// exited, exited is true and status describes how.
func (c *Child) TryWait() (exited bool, status ExitStatus, err error) {
	var ws unix.WaitStatus
	pid, err := unix.Wait4(c.Pid(), &ws, unix.WNOHANG, nil)
	switch {
	case err == unix.ECHILD:
		// already reaped elsewhere; treat as exited with unknown status
		return true, ExitStatus{Code: -1}, nil
	case err != nil:
		return false, ExitStatus{}, err
	case pid == 0:
		return false, ExitStatus{}, nil
	}

	st := ExitStatus{Code: -1}
	if ws.Exited() {
		st.Code = ws.ExitStatus()
	} else if ws.Signaled() {
		st.Signal = ws.Signal()
	}
	return true, st, nil
}

// ClosePTY closes the master descriptor.
func (c *Child) ClosePTY() error { return c.master.Close() }

// ExitStatus is how a child ended: an exit code, or the signal that
// killed it.
type ExitStatus struct {
	Code   int
	Signal syscall.Signal
}

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return "signal: " + s.Signal.String()
	}
	return "exit status " + strconv.Itoa(s.Code)
}
