// Package registry binds keystrokes to actions while the focused tab
// is passive. Bindings are explicit and injected; nothing here reaches
// for globals.
package registry

import (
	"log/slog"

	"github.com/devmux/devmux/engine"
	"github.com/devmux/devmux/input"
)

// Action is what a bound key does.
type Action func(loop *engine.Loop)

// Registry maps keys to actions and implements engine.KeyHandler.
type Registry struct {
	bindings map[string]Action
	logger   *slog.Logger
}

// New returns an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		bindings: make(map[string]Action),
		logger:   logger,
	}
}

// Bind attaches action to key, replacing any previous binding.
func (r *Registry) Bind(key string, action Action) {
	r.bindings[key] = action
}

// BindRoute attaches a command-specific byte route: pressing key writes
// p to the named tab's terminal even while it is passive.
func (r *Registry) BindRoute(key, tab string, p []byte) {
	r.Bind(key, func(loop *engine.Loop) {
		for _, c := range loop.Controllers() {
			if c.Name() == tab {
				c.RouteBytes(p)
				return
			}
		}
	})
}

// HandleKey runs the binding for key, if any.
func (r *Registry) HandleKey(loop *engine.Loop, key []byte) {
	action, ok := r.bindings[string(key)]
	if !ok {
		r.logger.Debug("unbound key", "key", string(key))
		return
	}
	action(loop)
}

// Defaults returns a registry with the standard bindings: tab cycling,
// number keys for direct focus, toggle, restart, interactive mode, and
// quit.
func Defaults(logger *slog.Logger) *Registry {
	r := New(logger)

	r.Bind("\t", func(l *engine.Loop) { l.FocusNext() })
	r.Bind("\x1b[Z", func(l *engine.Loop) { l.FocusPrev() })
	for i, key := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		idx := i
		r.Bind(key, func(l *engine.Loop) { l.FocusIndex(idx) })
	}
	r.Bind("t", func(l *engine.Loop) {
		if c := l.Focused(); c != nil {
			c.Toggle()
		}
	})
	r.Bind("r", func(l *engine.Loop) {
		if c := l.Focused(); c != nil {
			c.Restart()
		}
	})
	r.Bind("i", func(l *engine.Loop) {
		if c := l.Focused(); c != nil && c.Running() {
			c.SetMode(input.Interactive)
		}
	})
	r.Bind("q", func(l *engine.Loop) { l.RequestQuit() })

	return r
}
