package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"syscall"
	"time"

	"github.com/olebedev/emitter"

	"github.com/devmux/devmux"
	"github.com/devmux/devmux/ingest"
	"github.com/devmux/devmux/input"
	"github.com/devmux/devmux/internal/clock"
	"github.com/devmux/devmux/metrics"
	"github.com/devmux/devmux/proctree"
	"github.com/devmux/devmux/pty"
	"github.com/devmux/devmux/vt"
)

// State is where a controller's child is in its lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateForceKilling
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateForceKilling:
		return "force-killing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config describes one tab's child for a Controller.
type Config struct {
	// Name labels the tab in events, metrics and logs.
	Name string
	// Command is the argv to supervise.
	Command []string
	// Dir is the child working directory; empty inherits.
	Dir string
	// Env is extra environment, overriding inherited and forced values.
	Env []string
	// Autostart starts the child whenever it is observed stopped, until
	// an explicit Stop or Toggle disarms it; the next Start re-arms it.
	Autostart bool
	// Scrollback is the retained scrolled-off row count; 0 means the
	// default.
	Scrollback int
	// Cols and Rows are the initial dimensions; 0 means the default.
	Cols, Rows int

	Clock   clock.Clock
	Logger  *slog.Logger
	Events  *emitter.Emitter
	Metrics *metrics.Set
}

// Controller supervises one tab's child process: it owns the child
// handle, its screen model and ingestor, and drives the lifecycle state
// machine from the host's tick loop. A controller is confined to that
// loop; none of its methods are safe for concurrent use.
type Controller struct {
	name      string
	spec      pty.Spec
	autostart bool

	clock   clock.Clock
	logger  *slog.Logger
	events  *emitter.Emitter
	metrics *metrics.Set

	screen   *vt.Screen
	parser   *vt.Parser
	ingestor *ingest.Ingestor
	router   *input.Router

	child      *pty.Child
	state      State
	mode       input.Mode
	focused    bool
	exitStatus *pty.ExitStatus

	// autostartArmed gates autostart at runtime: an explicit Stop or
	// Toggle disarms it so the stop is not immediately undone; Start
	// re-arms it.
	autostartArmed bool

	stopInitiatedAt   time.Time
	lastWaitingNotice time.Time
	stopRequested     bool
	descendants       []int
	afterTerminate    []func()

	readBuf []byte
	readErr error
}

// NewController builds the controller for one tab. It does not start
// the child; the first Tick autostarts it when configured.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cols, rows := cfg.Cols, cfg.Rows
	if cols < 1 {
		cols = devmux.DefaultCols
	}
	if rows < 1 {
		rows = devmux.DefaultRows
	}
	scrollback := cfg.Scrollback
	if scrollback == 0 {
		scrollback = devmux.DefaultScrollback
	}

	logger := cfg.Logger.With("tab", cfg.Name)
	screen := vt.NewScreen(cols, rows, scrollback)
	parser := vt.NewParser(screen, logger)

	c := &Controller{
		name:           cfg.Name,
		spec:           pty.Spec{Command: cfg.Command, Dir: cfg.Dir, Env: cfg.Env, Cols: cols, Rows: rows},
		autostart:      cfg.Autostart,
		autostartArmed: cfg.Autostart,
		clock:          cfg.Clock,
		logger:         logger,
		events:         cfg.Events,
		metrics:        cfg.Metrics,
		screen:         screen,
		parser:         parser,
		ingestor:       ingest.NewIngestor(parser, logger),
		readBuf:        make([]byte, devmux.PTYChunkSize),
	}
	c.router = input.NewRouter(childWriter{c}, cols, logger)
	return c
}

// Name returns the tab name.
func (c *Controller) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Screen returns the tab's screen model for rendering.
func (c *Controller) Screen() *vt.Screen { return c.screen }

// Raw returns the tab's raw output replay buffer.
func (c *Controller) Raw() *ingest.RawBuffer { return c.ingestor.Raw() }

// Mode returns the tab's input mode.
func (c *Controller) Mode() input.Mode { return c.mode }

// Running reports whether a child is alive or winding down.
func (c *Controller) Running() bool {
	switch c.state {
	case StateStarting, StateRunning, StateStopping, StateForceKilling:
		return true
	}
	return false
}

// ExitStatus returns how the last child ended, or nil before any exit.
func (c *Controller) ExitStatus() *pty.ExitStatus { return c.exitStatus }

// Start spawns the child. Valid only from Stopped; anything else is a
// no-op. A spawn failure is reported in the tab, the controller settles
// back to Stopped, and the error is returned for the caller's log.
func (c *Controller) Start() error {
	if c.state != StateStopped {
		return nil
	}
	c.setState(StateStarting, devmux.EventProcStarting)
	c.autostartArmed = c.autostart
	c.stopRequested = false
	c.exitStatus = nil
	c.readErr = nil

	child, err := pty.Spawn(c.spec)
	if err != nil {
		c.metrics.IncSpawnFailure(c.name)
		c.echoStatus(fmt.Sprintf("Spawn failed: %v", err))
		c.logger.Error("spawn failed", "err", err)
		c.setState(StateTerminated, devmux.EventProcTerminated)
		c.settle()
		return &SpawnError{Command: c.spec.Command, Cause: err}
	}

	c.child = child
	c.metrics.IncSpawn(c.name)
	c.logger.Info("child started", "pid", child.Pid(), "command", strings.Join(c.spec.Command, " "))
	c.setState(StateRunning, devmux.EventProcRunning)
	return nil
}

// Stop begins graceful termination: descendant snapshot, SIGTERM to the
// root, and the grace countdown. Repeated calls while stopping are
// no-ops; the signal is never resent.
func (c *Controller) Stop() {
	switch c.state {
	case StateStarting, StateRunning:
	default:
		return
	}
	c.autostartArmed = false
	c.stopRequested = true
	c.descendants = proctree.Descendants(c.child.Pid())
	c.stopInitiatedAt = c.clock.Now()
	c.lastWaitingNotice = time.Time{}
	c.echoStatus("Stopping process...")
	if err := c.child.Signal(syscall.SIGTERM); err != nil {
		c.logger.Debug("sigterm failed", "err", err)
	}
	c.setState(StateStopping, devmux.EventProcStopping)
}

// Restart stops the child and starts it again once it has terminated.
// On a stopped tab it simply starts.
func (c *Controller) Restart() {
	c.metrics.IncRestart(c.name)
	if !c.Running() {
		_ = c.Start()
		return
	}
	armed := c.autostartArmed
	c.afterTerminate = append(c.afterTerminate, func() {
		_ = c.Start()
		c.autostartArmed = armed
	})
	c.Stop()
}

// Toggle stops a running child or starts a stopped one.
func (c *Controller) Toggle() {
	if c.Running() {
		c.Stop()
	} else {
		_ = c.Start()
	}
}

// Tick advances the state machine one supervision step: drain output,
// poll liveness, and reconcile the stopping countdown. Called from the
// host loop; never blocks.
func (c *Controller) Tick() {
	switch c.state {
	case StateStopped:
		if c.autostart && c.autostartArmed {
			_ = c.Start()
		}
	case StateRunning:
		c.pumpOutput()
		if exited, status := c.pollExit(); exited {
			c.finish(status)
		} else if c.readErr != nil {
			// read failure means the terminal is gone; make the exit
			// converge instead of spinning on a dead master
			_ = c.child.Signal(syscall.SIGKILL)
		}
	case StateStopping:
		c.pumpOutput()
		if exited, status := c.pollExit(); exited {
			c.finish(status)
			return
		}
		if c.clock.Now().Sub(c.stopInitiatedAt) >= devmux.TermGracePeriod {
			c.metrics.IncForceKill(c.name)
			c.echoStatus("Force killing!")
			c.logger.Warn("grace period expired", "pid", c.child.Pid())
			if err := c.child.Signal(syscall.SIGKILL); err != nil {
				c.logger.Debug("sigkill failed", "err", err)
			}
			c.setState(StateForceKilling, devmux.EventProcForceKill)
			return
		}
		c.waitingNotice()
	case StateForceKilling:
		c.pumpOutput()
		if exited, status := c.pollExit(); exited {
			c.finish(status)
		}
	}
}

// SendInput delivers one keystroke from the host. Interactive mode
// routes it to the child; Ctrl-X drops back to passive without
// forwarding. Passive keystrokes are ignored here; the host's registry
// owns them.
func (c *Controller) SendInput(key []byte) {
	if c.mode != input.Interactive {
		return
	}
	if input.ExitRequested(key) {
		c.SetMode(input.Passive)
		return
	}
	if err := c.router.Route(key); err != nil {
		c.logger.Debug("input write failed", "err", err)
	}
}

// RouteBytes writes bytes to the child's terminal regardless of mode,
// for hotkey handlers bound to a specific command.
func (c *Controller) RouteBytes(p []byte) {
	if err := c.router.WriteThrough(p); err != nil {
		c.logger.Debug("input write failed", "err", err)
	}
}

// SetMode switches between passive and interactive input.
func (c *Controller) SetMode(m input.Mode) {
	if c.mode == m {
		return
	}
	c.mode = m
	c.logger.Debug("input mode changed", "mode", m.String())
}

// Focus marks the tab focused.
func (c *Controller) Focus() { c.focused = true }

// Blur unfocuses the tab and leaves interactive mode.
func (c *Controller) Blur() {
	c.focused = false
	c.SetMode(input.Passive)
}

// Focused reports whether the tab is focused.
func (c *Controller) Focused() bool { return c.focused }

// SetDimensions resizes the screen model and the child's terminal.
func (c *Controller) SetDimensions(cols, rows int) {
	if cols < 1 {
		cols = devmux.DefaultCols
	}
	if rows < 1 {
		rows = devmux.DefaultRows
	}
	c.screen.Resize(cols, rows)
	c.router.SetWidth(cols)
	c.spec.Cols, c.spec.Rows = cols, rows
	if c.child != nil && c.Running() {
		if err := c.child.Resize(cols, rows); err != nil {
			c.logger.Debug("pty resize failed", "err", err)
		}
	}
}

// RenderInto returns up to rows rendered lines of the screen, bottom
// aligned, padded with empty lines when the grid is shorter.
func (c *Controller) RenderInto(rows int) []string {
	lines := c.screen.RenderLines()
	if rows <= 0 || rows == len(lines) {
		return lines
	}
	if rows < len(lines) {
		return lines[len(lines)-rows:]
	}
	out := make([]string, rows-len(lines), rows)
	return append(out, lines...)
}

// pumpOutput drains everything the PTY has pending without blocking.
func (c *Controller) pumpOutput() {
	for {
		n, err := c.child.TryRead(c.readBuf)
		if n > 0 {
			c.metrics.AddBytes(c.name, n)
			c.ingestor.HandleChunk(c.readBuf[:n])
		}
		if err != nil {
			if err != io.EOF && c.readErr == nil {
				c.readErr = &ReadError{Cause: err}
				c.logger.Warn("pty read failed", "err", err)
			}
			if err == io.EOF {
				c.readErr = io.EOF
			}
			return
		}
		if n < len(c.readBuf) {
			return
		}
	}
}

func (c *Controller) pollExit() (bool, pty.ExitStatus) {
	exited, status, err := c.child.TryWait()
	if err != nil {
		c.logger.Debug("wait failed", "err", err)
		return false, pty.ExitStatus{}
	}
	return exited, status
}

// finish reaps a dead child: final output drain, descendant cleanup,
// terminal-state bookkeeping, then the deferred-action queue.
func (c *Controller) finish(status pty.ExitStatus) {
	c.pumpOutput()
	c.ingestor.Flush()
	if err := c.child.ClosePTY(); err != nil {
		c.logger.Debug("pty close failed", "err", err)
	}

	st := status
	c.exitStatus = &st
	c.setState(StateTerminated, devmux.EventProcTerminated)
	c.reapDescendants()

	if c.stopRequested {
		c.echoStatus("Stopped.")
	} else {
		c.echoStatus(fmt.Sprintf("Exited: %s", status))
	}
	c.logger.Info("child exited", "status", status.String())
	c.settle()
}

// settle returns a terminated controller to Stopped and runs the
// afterTerminate queue exactly once, in order. The queue is detached
// first so actions can schedule new ones for the next termination.
func (c *Controller) settle() {
	c.child = nil
	c.descendants = nil
	c.stopRequested = false
	c.setState(StateStopped, devmux.EventProcStopped)

	callbacks := c.afterTerminate
	c.afterTerminate = nil
	for _, fn := range callbacks {
		fn()
	}
}

// reapDescendants SIGKILLs snapshotted descendants that outlived the
// root, so grandchildren that double-forked do not keep ports open.
func (c *Controller) reapDescendants() {
	if len(c.descendants) == 0 {
		return
	}
	var alive []int
	for _, pid := range c.descendants {
		if proctree.Alive(pid) {
			alive = append(alive, pid)
		}
	}
	if len(alive) > 0 {
		c.logger.Debug("killing surviving descendants", "pids", alive)
		proctree.SignalAll(alive, syscall.SIGKILL)
	}
	c.descendants = nil
}

func (c *Controller) waitingNotice() {
	now := c.clock.Now()
	if !c.lastWaitingNotice.IsZero() && now.Sub(c.lastWaitingNotice) < devmux.WaitingNoticeInterval {
		return
	}
	c.lastWaitingNotice = now
	c.echoStatus("Waiting...")
}

// echoStatus writes a status line into the tab's own screen, so the
// message scrolls with the output it annotates.
func (c *Controller) echoStatus(text string) {
	c.parser.Feed([]byte("\r\n" + text + "\r\n"))
}

func (c *Controller) setState(s State, topic string) {
	if c.state == s {
		return
	}
	c.state = s
	if c.events != nil {
		c.events.Emit(topic, c.name)
	}
}

// childWriter forwards router output to the live child, quietly
// dropping writes once it is gone.
type childWriter struct {
	c *Controller
}

func (w childWriter) Write(p []byte) (int, error) {
	if w.c.child == nil || !w.c.Running() {
		return len(p), nil
	}
	return w.c.child.Write(p)
}
