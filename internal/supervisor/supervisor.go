// Package supervisor implements the generic, restart-policy-driven process
// manager: a single Supervisor engine parameterized by a ProcessSpec value
// (name, command, restart delay, and an argument builder), following the
// spec's "polymorphism without inheritance" note — one concrete engine type,
// many ProcessSpec values, rather than a class hierarchy.
//
// This is grounded on bg/ap_common/aputil.Child (piped stdout/stderr,
// line-buffered logging) combined with bg/ap.networkd's runOne/runAll
// restart-loop idiom and bg/ap.mcp's daemon/runDaemon signal-and-restart
// pattern, generalized into one reusable type.
package supervisor

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/applog"
	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
)

// ServiceState is the run-state of a single supervised child process.
type ServiceState int

const (
	// Stopped means no child is currently running and none is expected
	// to be (either never started, or stopped by shutdown).
	Stopped ServiceState = iota
	// Running means a child is currently alive.
	Running
	// Failed means the most recent child exited or failed to start; a
	// restart is pending unless shutdown has begun.
	Failed
)

func (s ServiceState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ArgsFunc builds the argument list for a child invocation from the current
// config snapshot.
type ArgsFunc func(*config.Config) []string

// EnvFunc builds extra "KEY=value" environment entries for a child
// invocation, appended to the inherited environment.
type EnvFunc func(*config.Config) []string

// ProcessSpec is the capability set the spec requires: a name (used for log
// tagging), a command to exec, a restart delay, and an argument builder. Env
// is an adapter-specific extension for daemons (iwd) that take their
// configuration directory from the environment rather than a flag.
type ProcessSpec struct {
	Name         string
	Command      string
	RestartDelay time.Duration
	Args         ArgsFunc
	Env          EnvFunc
}

// statusChecker avoids an import cycle with internal/state while still
// letting the supervisor ask "are we shutting down".
type statusChecker interface {
	IsShuttingDown() bool
}

// Supervisor runs one ProcessSpec, restarting it according to policy until
// shutdown is observed.
type Supervisor struct {
	spec   ProcessSpec
	cfg    *config.Config
	bus    *bus.Bus
	status statusChecker
	logger *zap.SugaredLogger
	child  *zap.SugaredLogger

	mu       sync.RWMutex
	state    ServiceState
	pid      int
	restarts uint64
}

// New constructs a Supervisor for spec. status is consulted to decide
// whether run_persistent should keep retrying after a failure. The child's
// stdout/stderr are relayed through a separate uncallered logger, since the
// interesting source location for those lines is the child binary, not ours.
func New(spec ProcessSpec, cfg *config.Config, b *bus.Bus, status statusChecker, logger *zap.SugaredLogger) *Supervisor {
	child, err := applog.NewChild()
	if err != nil {
		child = logger
	}
	return &Supervisor{
		spec:   spec,
		cfg:    cfg,
		bus:    b,
		status: status,
		logger: logger,
		child:  child,
	}
}

// CurrentState returns the supervised process's current ServiceState.
func (s *Supervisor) CurrentState() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// PID returns the current child's PID, or 0 if none is running.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid
}

func (s *Supervisor) setState(st ServiceState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) setPID(pid int) {
	s.mu.Lock()
	s.pid = pid
	s.mu.Unlock()
}

// Restarts returns the number of times this supervisor has relaunched its
// child after the initial start, for the metrics endpoint's restart
// counters.
func (s *Supervisor) Restarts() uint64 {
	return atomic.LoadUint64(&s.restarts)
}

// Signal delivers sig to the current child, if one is running. It is a
// no-op if PID is 0.
func (s *Supervisor) Signal(sig syscall.Signal) error {
	s.mu.RLock()
	pid := s.pid
	s.mu.RUnlock()
	if pid == 0 {
		return nil
	}
	return syscall.Kill(pid, sig)
}

// Spawn launches the restart loop in the background and returns
// immediately; it never blocks on the child.
func (s *Supervisor) Spawn() {
	go s.runPersistent()
}

// runPersistent is the outer restart loop: invoke start(); if the daemon is
// shutting down, exit, otherwise sleep the restart delay and retry. The loop
// never exits except on shutdown, absorbing every start() error itself so a
// crashing supervisor never propagates to its siblings.
func (s *Supervisor) runPersistent() {
	first := true
	for {
		if !first {
			atomic.AddUint64(&s.restarts, 1)
		}
		first = false

		if err := s.start(); err != nil {
			s.logger.Warnw("service exited", "service", s.spec.Name, "error", err)
		}

		if s.status.IsShuttingDown() {
			return
		}

		time.Sleep(s.spec.RestartDelay)
	}
}

// start launches the child exactly once and returns only when the child
// exits or shutdown is observed. It fans out four goroutines (watch-exit,
// watch-bus, log-stdout, log-stderr) and returns the first result reported
// by watch-exit or watch-bus.
func (s *Supervisor) start() error {
	if s.CurrentState() == Running {
		return errors.Errorf("%s: already running", s.spec.Name)
	}

	args := s.spec.Args(s.cfg)
	cmd := exec.Command(s.spec.Command, args...)
	cmd.Stdin = nil
	if s.spec.Env != nil {
		cmd.Env = append(os.Environ(), s.spec.Env(s.cfg)...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "%s: stdout pipe", s.spec.Name)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrapf(err, "%s: stderr pipe", s.spec.Name)
	}

	s.setState(Running)
	if err := cmd.Start(); err != nil {
		s.setState(Failed)
		return errors.Wrapf(err, "%s: start", s.spec.Name)
	}
	s.setPID(cmd.Process.Pid)
	s.logger.Infow("service started", "service", s.spec.Name, "pid", cmd.Process.Pid, "args", args)

	results := make(chan error, 4)

	// Watch-exit.
	go func() {
		err := cmd.Wait()
		s.setPID(0)
		s.setState(Failed)
		time.Sleep(500 * time.Millisecond)
		if err != nil {
			results <- errors.Wrapf(err, "%s: exited", s.spec.Name)
		} else {
			results <- errors.Errorf("%s: exited with status 0", s.spec.Name)
		}
	}()

	// Watch-bus.
	ch := s.bus.Subscribe()
	go func() {
		defer s.bus.Unsubscribe(ch)
		for ev := range ch {
			if ev.Kind == bus.Shutdown {
				s.setState(Stopped)
				if cmd.Process != nil {
					_ = cmd.Process.Signal(syscall.SIGTERM)
				}
				results <- nil
				return
			}
		}
	}()

	// Log-stdout / log-stderr.
	go s.logPipe(stdout, s.child.Infof)
	go s.logPipe(stderr, s.child.Warnf)

	return <-results
}

// logPipe reads r line by line until EOF, relaying each line to logf tagged
// with the service name, matching aputil.Child's handlePipe behavior.
func (s *Supervisor) logPipe(r io.Reader, logf func(string, ...interface{})) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logf("[%s] %s", s.spec.Name, sc.Text())
	}
}

// RunOnce runs the command to completion once, for one-shot rather than
// persistent commands, and returns its combined stdout/stderr, also on
// failure. Nothing in this tree calls it; wg-quick is run through
// internal/execrun.
func RunOnce(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, errors.Wrapf(err, "%s: %s", name, out)
	}
	return out, nil
}
