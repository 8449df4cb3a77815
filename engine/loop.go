package engine

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/devmux/devmux"
	"github.com/devmux/devmux/input"
	"github.com/devmux/devmux/internal/clock"
)

// Renderer composes one frame from the tabs and writes it to w. The
// dashboard implements it; the loop only decides when to paint.
type Renderer interface {
	Render(w io.Writer, tabs []*Controller, focused int, quitting bool) error
	// PaneRows returns how many rows remain for tab content when the
	// terminal has rows total.
	PaneRows(rows int) int
}

// KeyHandler consumes keystrokes while the focused tab is passive.
type KeyHandler interface {
	HandleKey(loop *Loop, key []byte)
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Controllers []*Controller
	Renderer    Renderer
	Keys        KeyHandler
	Stdin       *os.File
	Stdout      io.Writer
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Loop is the single-threaded cooperative driver: it drains signal
// flags, ticks every controller, polls stdin, and renders on a fixed
// cadence. Everything the engine does happens on the goroutine that
// called Run; the only suspension points are the stdin poll and the
// inter-frame idle.
type Loop struct {
	controllers []*Controller
	renderer    Renderer
	keys        KeyHandler
	stdin       *os.File
	stdout      io.Writer
	clock       clock.Clock
	logger      *slog.Logger

	focused     int
	quitFlag    atomic.Bool
	winchFlag   atomic.Bool
	lastFrame   time.Time
	lastKeyAt   time.Time
	cols, rows  int
	signalCh    chan os.Signal
	winchCh     chan os.Signal
	stopSignals func()
}

// NewLoop builds the loop. The first controller starts focused.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	l := &Loop{
		controllers: cfg.Controllers,
		renderer:    cfg.Renderer,
		keys:        cfg.Keys,
		stdin:       cfg.Stdin,
		stdout:      cfg.Stdout,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
	if len(l.controllers) > 0 {
		l.controllers[0].Focus()
	}
	return l
}

// Controllers returns the loop's tabs in order.
func (l *Loop) Controllers() []*Controller { return l.controllers }

// Focused returns the focused tab, or nil without tabs.
func (l *Loop) Focused() *Controller {
	if len(l.controllers) == 0 {
		return nil
	}
	return l.controllers[l.focused]
}

// FocusIndex focuses tab i, blurring the previous one.
func (l *Loop) FocusIndex(i int) {
	if i < 0 || i >= len(l.controllers) || i == l.focused {
		return
	}
	l.controllers[l.focused].Blur()
	l.focused = i
	l.controllers[i].Focus()
}

// FocusNext cycles focus forward.
func (l *Loop) FocusNext() {
	if n := len(l.controllers); n > 0 {
		l.FocusIndex((l.focused + 1) % n)
	}
}

// FocusPrev cycles focus backward.
func (l *Loop) FocusPrev() {
	if n := len(l.controllers); n > 0 {
		l.FocusIndex((l.focused + n - 1) % n)
	}
}

// RequestQuit flags the loop to begin the quit sequence on its next
// tick. Safe to call from any goroutine.
func (l *Loop) RequestQuit() { l.quitFlag.Store(true) }

// Run drives the loop until quit. It installs its signal handlers,
// sizes the terminal, and only returns once the quit drain has
// finished; any children that outlive the drain are left to init.
func (l *Loop) Run() error {
	l.installSignals()
	defer l.stopSignals()

	l.resizeAll()

	for !l.quitFlag.Load() {
		l.drainSignals()
		for _, c := range l.controllers {
			c.Tick()
		}
		l.pollInput()
		l.renderFrame(false)
	}
	return l.quitDrain()
}

func (l *Loop) installSignals() {
	l.signalCh = make(chan os.Signal, 4)
	l.winchCh = make(chan os.Signal, 1)
	signal.Notify(l.signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	signal.Notify(l.winchCh, syscall.SIGWINCH)
	l.stopSignals = func() {
		signal.Stop(l.signalCh)
		signal.Stop(l.winchCh)
	}
}

// drainSignals consumes pending deliveries without blocking and folds
// them into flags, honored on this tick.
func (l *Loop) drainSignals() {
	for {
		select {
		case sig := <-l.signalCh:
			l.logger.Info("quit signal", "signal", sig.String())
			l.quitFlag.Store(true)
		case <-l.winchCh:
			l.winchFlag.Store(true)
		default:
			if l.winchFlag.Swap(false) {
				l.resizeAll()
			}
			return
		}
	}
}

// resizeAll queries the terminal and fans the new dimensions out to
// every controller. A failed query falls back to 80x24.
func (l *Loop) resizeAll() {
	cols, rows, err := term.GetSize(int(l.stdin.Fd()))
	if err != nil || cols < 1 || rows < 1 {
		l.logger.Debug("terminal size query failed", "err", err)
		cols, rows = devmux.DefaultCols, devmux.DefaultRows
	}
	l.cols, l.rows = cols, rows
	paneRows := rows
	if l.renderer != nil {
		paneRows = l.renderer.PaneRows(rows)
	}
	for _, c := range l.controllers {
		c.SetDimensions(cols, paneRows)
	}
}

// pollInput waits briefly for stdin and dispatches whatever arrived.
// The wait shortens while keys are flowing so interactive typing stays
// snappy, and stretches when idle so the loop mostly sleeps.
func (l *Loop) pollInput() {
	timeout := devmux.InputPollIdle
	if l.clock.Now().Sub(l.lastKeyAt) < time.Second {
		timeout = devmux.InputPollFast
	}

	fds := []unix.PollFd{{Fd: int32(l.stdin.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if err != unix.EINTR {
			l.logger.Debug("stdin poll failed", "err", err)
		}
		return
	}
	if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
		return
	}

	buf := make([]byte, 64)
	rn, err := l.stdin.Read(buf)
	if err != nil || rn == 0 {
		return
	}
	l.lastKeyAt = l.clock.Now()
	l.dispatchKey(buf[:rn])
}

func (l *Loop) dispatchKey(key []byte) {
	c := l.Focused()
	if c != nil && c.Mode() == input.Interactive {
		c.SendInput(key)
		return
	}
	if l.keys != nil {
		l.keys.HandleKey(l, key)
	}
}

func (l *Loop) renderFrame(quitting bool) {
	now := l.clock.Now()
	if now.Sub(l.lastFrame) < devmux.FrameInterval {
		return
	}
	l.lastFrame = now
	if l.renderer == nil {
		return
	}
	if err := l.renderer.Render(l.stdout, l.controllers, l.focused, quitting); err != nil {
		l.logger.Debug("render failed", "err", err)
	}
}

var errChildrenRunning = errors.New("children still running")

// quitDrain stops every tab and keeps ticking for up to the quit grace
// period while painting the quitting overlay. Children that survive the
// window are abandoned to the host supervisor.
func (l *Loop) quitDrain() error {
	var result *multierror.Error
	for _, c := range l.controllers {
		c.Stop()
	}

	attempts := uint(devmux.QuitGracePeriod / devmux.FrameInterval)
	err := retry.Do(
		func() error {
			l.drainSignals()
			running := 0
			for _, c := range l.controllers {
				c.Tick()
				if c.Running() {
					running++
				}
			}
			l.renderFrame(true)
			if running > 0 {
				return errChildrenRunning
			}
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(devmux.FrameInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		for _, c := range l.controllers {
			if c.Running() {
				l.logger.Warn("abandoning child", "tab", c.Name(), "state", c.State().String())
				result = multierror.Append(result, &AbandonedError{Tab: c.Name()})
			}
		}
	}
	return result.ErrorOrNil()
}

// AbandonedError records a tab whose child outlived the quit drain.
type AbandonedError struct {
	Tab string
}

func (e *AbandonedError) Error() string {
	return "tab " + e.Tab + ": child outlived quit grace period"
}
