//go:build !windows
// +build !windows

// Package proctree discovers the descendants of a process so that
// termination can reach grandchildren that double-forked away from
// their parent's process group.
package proctree

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Descendants returns the transitive children of pid, depth first. The
// root pid itself is not included. It reads /proc when available and
// falls back to ps otherwise; an empty slice means no descendants were
// found or the table could not be read at all.
func Descendants(pid int) []int {
	children, err := childrenByProc()
	if err != nil {
		children, err = childrenByPs()
		if err != nil {
			return nil
		}
	}

	var out []int
	var walk func(int)
	walk = func(p int) {
		for _, c := range children[p] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(pid)
	return out
}

// childrenByProc builds the ppid -> pids map from /proc/<pid>/stat.
func childrenByProc() (map[int][]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int)
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid, err := statPpid(pid)
		if err != nil {
			continue // raced with exit
		}
		children[ppid] = append(children[ppid], pid)
	}
	return children, nil
}

// statPpid parses the ppid out of /proc/<pid>/stat. The comm field may
// contain spaces and parentheses, so fields are counted from the last
// ')' in the line.
func statPpid(pid int) (int, error) {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, err
	}
	i := bytes.LastIndexByte(b, ')')
	if i < 0 || i+2 >= len(b) {
		return 0, strconv.ErrSyntax
	}
	fields := strings.Fields(string(b[i+2:]))
	if len(fields) < 2 {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(fields[1])
}

// childrenByPs shells out to ps for platforms without /proc.
func childrenByPs() (map[int][]int, error) {
	out, err := exec.Command("ps", "-eo", "pid=,ppid=").Output()
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}
	return children, sc.Err()
}

// SignalAll delivers sig to every pid, ignoring processes that are
// already gone or out of reach.
func SignalAll(pids []int, sig syscall.Signal) {
	for _, pid := range pids {
		err := unix.Kill(pid, sig)
		if err == nil || err == unix.ESRCH || err == unix.EPERM {
			continue
		}
	}
}

// Alive reports whether pid still exists.
func Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
