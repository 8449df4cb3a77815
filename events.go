package devmux

// Event topics published on the engine's event bus. The payload is the
// tab name.
const (
	EventProcStarting   = "proc:starting"
	EventProcRunning    = "proc:running"
	EventProcStopping   = "proc:stopping"
	EventProcForceKill  = "proc:forcekill"
	EventProcTerminated = "proc:terminated"
	EventProcStopped    = "proc:stopped"
)
