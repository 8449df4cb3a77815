// Package input routes host keystrokes to a child's terminal. In
// interactive mode every key is forwarded, with a small translation
// layer and a local estimate of the child's edit line used to
// bounds-check cursor keys.
package input

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/devmux/devmux/vt"
)

// Mode says who consumes keystrokes for a tab.
type Mode int

const (
	// Passive leaves keys to the host for navigation.
	Passive Mode = iota
	// Interactive forwards keys to the child's terminal.
	Interactive
)

func (m Mode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "passive"
}

const ctrlX = 0x18

var (
	keyUp    = []byte("\x1b[A")
	keyDown  = []byte("\x1b[B")
	keyRight = []byte("\x1b[C")
	keyLeft  = []byte("\x1b[D")
)

// Router translates and forwards keystrokes. It keeps a line-length and
// cursor-position estimate of the child's current input line; the
// estimate only gates keys that would run off the line, it does not try
// to mirror the child's editor exactly.
type Router struct {
	w      io.Writer
	width  int
	logger *slog.Logger

	lineLen   int
	cursorPos int
}

// NewRouter returns a router writing forwarded bytes to w. width is the
// screen width used to approximate one line for Up/Down.
func NewRouter(w io.Writer, width int, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{w: w, width: width, logger: logger}
}

// SetWidth updates the screen-width approximation after a resize.
func (r *Router) SetWidth(width int) { r.width = width }

// LineEstimate returns the current (line length, cursor position)
// estimate.
func (r *Router) LineEstimate() (lineLen, cursorPos int) {
	return r.lineLen, r.cursorPos
}

// ExitRequested reports whether key is the interactive-mode escape
// (Ctrl-X). The caller leaves interactive mode and must not forward it.
func ExitRequested(key []byte) bool {
	return len(key) == 1 && key[0] == ctrlX
}

// Route handles one keystroke in interactive mode: translates it,
// updates the line estimate, and forwards it unless the estimate says
// it would run off the line. Ctrl-X is never forwarded; callers detect
// it with ExitRequested before routing.
func (r *Router) Route(key []byte) error {
	if ExitRequested(key) {
		return nil
	}

	switch {
	case bytes.Equal(key, keyLeft):
		if r.cursorPos == 0 {
			return nil
		}
		r.cursorPos--
	case bytes.Equal(key, keyRight):
		if r.cursorPos >= r.lineLen {
			return nil
		}
		r.cursorPos++
	case bytes.Equal(key, keyUp):
		r.cursorPos = max(0, r.cursorPos-r.width)
	case bytes.Equal(key, keyDown):
		r.cursorPos = min(r.lineLen, r.cursorPos+r.width)
	case len(key) == 1 && (key[0] == 0x7f || key[0] == '\b'):
		if r.cursorPos == 0 {
			return nil
		}
		r.cursorPos--
		r.lineLen--
	case len(key) == 1 && (key[0] == '\n' || key[0] == '\r'):
		r.lineLen, r.cursorPos = 0, 0
		return r.write([]byte{'\r'})
	default:
		if isPrintable(key) {
			n := len(vt.Graphemes(string(key)))
			r.cursorPos += n
			r.lineLen += n
		}
	}
	return r.write(key)
}

// WriteThrough forwards bytes without translation or estimate updates.
// Hotkey handlers use it to poke a passive child.
func (r *Router) WriteThrough(p []byte) error { return r.write(p) }

func (r *Router) write(p []byte) error {
	_, err := r.w.Write(p)
	return err
}

// isPrintable reports whether key carries text rather than a control or
// escape sequence.
func isPrintable(key []byte) bool {
	if len(key) == 0 || key[0] == 0x1b {
		return false
	}
	return key[0] >= 0x20 && key[0] != 0x7f
}
