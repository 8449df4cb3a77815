package devmux

import "time"

const (
	// Environment forced into every child PTY. Caller-provided values win.
	EnvForceColor = "FORCE_COLOR"
	EnvColumns    = "COLUMNS"
	EnvLines      = "LINES"

	// PTYChunkSize is the read size for PTY output. A read that fills the
	// buffer exactly is assumed to be a partial delivery and is held back
	// until the next, shorter read completes it.
	PTYChunkSize = 1024

	// RawBufferCap bounds the retained raw output per tab. The screen
	// model is authoritative; the raw buffer only serves replay.
	RawBufferCap = 64 * 1024

	// DefaultScrollback is the number of scrolled-off rows retained per tab.
	DefaultScrollback = 2000

	// DefaultCols and DefaultRows are used when the terminal size cannot
	// be determined.
	DefaultCols = 80
	DefaultRows = 24

	// TermGracePeriod is how long a child gets between SIGTERM and SIGKILL.
	TermGracePeriod = 5 * time.Second

	// QuitGracePeriod bounds how long the loop keeps ticking after quit
	// is requested before abandoning remaining children.
	QuitGracePeriod = 3 * time.Second

	// FrameInterval is the render cadence (~40 fps).
	FrameInterval = 25 * time.Millisecond

	// InputPollFast is the stdin poll timeout while keys are arriving;
	// InputPollIdle is the timeout otherwise.
	InputPollFast = 5 * time.Millisecond
	InputPollIdle = 25 * time.Millisecond

	// WaitingNoticeInterval rate-limits the "Waiting..." status line
	// while a child winds down.
	WaitingNoticeInterval = 40 * time.Millisecond
)
