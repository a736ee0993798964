// Package state implements the State Manager: the config snapshot, the
// run-state machine (Starting/Running/ShuttingDown), and the lifecycle
// back-reference to the assembled App that lets the WebSocket dispatcher
// reach every other component.
package state

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
)

// Status is the daemon's monotonic run-state.
type Status int

const (
	// Starting is the initial status, set by New.
	Starting Status = iota
	// Running is set once bootstrap completes (FinishStartup).
	Running
	// ShuttingDown is set once, by Shutdown, and never regresses.
	ShuttingDown
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// App is the minimal surface the State Manager needs from the assembled
// application object; callers typically pass a pointer to a concrete struct
// satisfying this interface. It is intentionally tiny: the State Manager
// only needs to be able to hand the same instance back out, not to drive it.
type App interface{}

// Manager owns the immutable config snapshot, the run-state, the event bus,
// and the App back-reference. All reads take a shared lock; writes
// (status transitions, app installation) take an exclusive one, and no lock
// is held across a suspension point.
type Manager struct {
	mu     sync.RWMutex
	config *config.Config
	status Status
	app    App
	bus    *bus.Bus
}

// New constructs a Manager in Starting state for the given config snapshot.
func New(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
		status: Starting,
		bus:    bus.New(bus.MinBufferSize),
	}
}

// Config returns the immutable config snapshot.
func (m *Manager) Config() *config.Config {
	return m.config
}

// Bus returns the shared event bus.
func (m *Manager) Bus() *bus.Bus {
	return m.bus
}

// SetAppInstance installs the fully-assembled App exactly once. A second
// call returns an error rather than silently replacing the reference, per
// the "at most one App instance is ever installed" invariant.
func (m *Manager) SetAppInstance(app App) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.app != nil {
		return errors.New("state: app instance already installed")
	}
	m.app = app
	return nil
}

// App returns the installed App, or an error if SetAppInstance has not yet
// been called.
func (m *Manager) App() (App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.app == nil {
		return nil, errors.New("state: app instance not yet available")
	}
	return m.app, nil
}

// CurrentStatus returns the current run-state.
func (m *Manager) CurrentStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsShuttingDown reports whether Shutdown has been called, letting other
// components (notably the Supervisor's restart loop) decide whether to keep
// retrying without importing the full Status type.
func (m *Manager) IsShuttingDown() bool {
	return m.CurrentStatus() == ShuttingDown
}

// FinishStartup transitions Starting → Running. It is a no-op (not an
// error) if called again or called after shutdown has begun, since status
// is monotonic and idempotent in the forward direction only.
func (m *Manager) FinishStartup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == Starting {
		m.status = Running
	}
}

// Shutdown transitions to ShuttingDown (if not already there), broadcasts
// bus.Shutdown, and blocks until every subscriber has drained, guaranteeing
// the broadcast happens-before this call returns.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.status = ShuttingDown
	m.mu.Unlock()

	m.bus.Broadcast(bus.Event{Kind: bus.Shutdown})
	m.bus.Drain()
}
