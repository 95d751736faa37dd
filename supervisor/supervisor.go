// Package supervisor manages the full lifecycle of one
// externally-spawned worker process: spawning it with redirected
// streams, isolating it in a terminable group, watching for loss of
// either side, and shutting it down through an escalating
// graceful-then-forceful protocol.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lambda-feedback/warden/liveness"
	"go.uber.org/zap"
)

// Supervisor owns exactly one worker process. The native process
// handle and the isolation-group handle are never shared across
// instances; both are released on every exit path.
type Supervisor struct {
	cfg Config
	log *zap.Logger
	bus *eventBus

	// mu serializes lifecycle operations. State transitions only
	// happen with mu held, which totally orders them and guarantees
	// each is observed before the next begins.
	mu       sync.Mutex
	state    atomic.Int32
	disposed bool

	iso     isolator
	proc    *managedProc
	term    *terminator
	record  *liveness.Record
	monitor *liveness.Monitor
	pumps   sync.WaitGroup

	exit    ExitStatus
	hasExit bool

	done chan struct{}
}

// New creates a supervisor for the given config. The config is
// immutable from here on. A nil logger is replaced by a nop logger.
func New(cfg Config, log *zap.Logger) (*Supervisor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Supervisor{
		cfg:  cfg.withDefaults(),
		log:  log.Named("supervisor").With(zap.String("label", cfg.Label)),
		bus:  newEventBus(),
		done: make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state. It never blocks, even
// while a lifecycle operation is in flight.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// ExitStatus returns how the worker exited, once it has.
func (s *Supervisor) ExitStatus() (ExitStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exit, s.hasExit
}

// Done is closed once a started worker reaches a terminal state.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Subscribe registers an observer for worker events and returns its
// deterministic unregistration func.
func (s *Supervisor) Subscribe(o Observer) func() {
	return s.bus.subscribe(o)
}

// Start spawns and isolates the worker, wires up the stream pumps
// and the liveness monitor, and moves the state to Running. It fails
// with ErrInvalidState unless the state is NotStarted. Any failure
// on the way unwinds whatever was partially started before the
// original error is returned; the supervisor never stays in
// Starting.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}

	if st := s.State(); st != StateNotStarted {
		return fmt.Errorf("%w: cannot start in state %s", ErrInvalidState, st)
	}

	s.setState(StateStarting)

	if err := s.startLocked(ctx); err != nil {
		s.log.Error("start failed, unwinding", zap.Error(err))
		s.stopLocked()
		return err
	}

	s.setState(StateRunning)
	return nil
}

func (s *Supervisor) startLocked(ctx context.Context) error {
	s.iso = newIsolator(s.log.Named("isolator"))
	if err := s.iso.Setup(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	l := &launcher{cfg: s.cfg, log: s.log.Named("launcher")}
	proc, err := l.spawn()
	if err != nil {
		return err
	}
	s.proc = proc
	go proc.reap()

	// the terminator exists before anything else can fail, so the
	// unwind path can always take the worker down
	s.term = &terminator{
		iso:     s.iso,
		timeout: s.cfg.ShutdownTimeout,
		log:     s.log.Named("terminator"),
	}

	if err := s.iso.Assign(proc.pid); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// publish this process's own liveness record so a child-mode
	// supervisor inside the worker can watch us
	s.record = liveness.NewRecord(s.cfg.Label, os.Getpid(), s.log.Named("liveness"))
	if err := s.record.Write(); err != nil {
		s.log.Warn("liveness record write failed", zap.Error(err))
		s.record = nil
	}

	s.pumps.Add(2)
	go proc.pump(proc.stdout, func(line string, ts time.Time) {
		s.bus.emitOutput(OutputEvent{Data: line, Timestamp: ts})
	}, &s.pumps)
	go proc.pump(proc.stderr, func(line string, ts time.Time) {
		s.bus.emitError(ErrorEvent{Data: line, Timestamp: ts})
	}, &s.pumps)

	go s.watchExit(proc)

	s.armMonitor()

	return nil
}

// armMonitor starts parent liveness monitoring when this process is
// itself a supervised child. The file-based strategy is preferred
// when the parent's record can be resolved, as it is immune to pid
// reuse; otherwise the monitor polls the process table. Arming
// failures are logged, never fatal: monitoring is a safety net, not
// a start precondition.
func (s *Supervisor) armMonitor() {
	if !s.cfg.MonitorParent {
		return
	}

	ppid, ok := ParentPid()
	if !ok {
		return
	}

	onLoss := func() {
		// async so the monitor goroutine can quiesce while the stop
		// path waits on it
		go s.triggerStop("parent lost")
	}

	params := liveness.Params{
		Pid:      ppid,
		Strategy: liveness.PidPoll,
		OnLoss:   onLoss,
		Log:      s.log.Named("liveness"),
	}

	if path, found := liveness.FindRecord(ppid); found {
		params.Strategy = liveness.RecordWatch
		params.RecordPath = path
	}

	monitor, err := liveness.NewMonitor(params)
	if err == nil {
		err = monitor.Start()
	}

	if err != nil && params.Strategy == liveness.RecordWatch {
		// fall back to the process-table poll
		s.log.Warn("record watch unavailable, polling instead", zap.Error(err))
		params.Strategy = liveness.PidPoll
		params.RecordPath = ""
		monitor, err = liveness.NewMonitor(params)
		if err == nil {
			err = monitor.Start()
		}
	}

	if err != nil {
		s.log.Warn("parent liveness monitor unavailable", zap.Error(err))
		return
	}

	s.monitor = monitor
}

// watchExit converges an unexpected worker exit onto the same
// teardown path as an explicit stop. A worker that exited cleanly
// ends in Stopped; one that crashed or was killed from outside ends
// in Failed. The distinction is observable only through state and
// events, never through an error from Start.
func (s *Supervisor) watchExit(p *managedProc) {
	<-p.exited

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		// a stop path owns the shutdown already
		return
	}

	s.log.Info("worker exited unexpectedly")
	s.setState(StateStopping)

	failed := p.exit.Signal != nil || (p.exit.Code != nil && *p.exit.Code != 0)
	s.exit, s.hasExit = p.exit, true
	s.finishLocked(failed)
}

// Stop shuts the worker down through the termination protocol and
// releases all resources. It is idempotent: calling it in any state
// other than Running is a no-op returning nil. It does not return
// until all background activity has quiesced, so no further events
// fire afterwards.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}

	if s.State() != StateRunning {
		return nil
	}

	s.setState(StateStopping)
	s.stopLocked()
	return nil
}

// Shutdown is the registerable shutdown trigger. The surrounding
// application wires host-level signals into it; the supervisor
// itself never installs process-wide hooks.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	return s.Stop(ctx)
}

func (s *Supervisor) triggerStop(reason string) {
	s.log.Info("shutdown triggered", zap.String("reason", reason))
	_ = s.Stop(context.Background())
}

// stopLocked tears down whatever exists: a fully running worker, or
// the partial leftovers of a failed start. Requires mu held and the
// state already in Stopping, except when unwinding a failed start
// where the transition happens here.
func (s *Supervisor) stopLocked() {
	if s.State() == StateStarting {
		s.setState(StateStopping)
	}

	// the monitor stands down first so its trigger cannot race the
	// termination below
	if s.monitor != nil {
		s.monitor.Close()
		s.monitor = nil
	}

	if s.proc != nil && s.term != nil {
		exit, escalated := s.term.terminate(s.proc)
		s.exit, s.hasExit = exit, true
		if escalated {
			s.log.Info("worker terminated forcefully")
		}
	}

	s.finishLocked(false)
}

// finishLocked quiesces the pumps and the monitor, releases the
// on-disk and platform resources, and commits the terminal state.
// Cleanup failures are logged and swallowed: they cannot affect a
// process that is already gone.
func (s *Supervisor) finishLocked(failed bool) {
	// every path to a terminal state disarms the monitor, not just
	// the explicit stop
	if s.monitor != nil {
		s.monitor.Close()
		s.monitor = nil
	}

	s.pumps.Wait()

	if s.record != nil {
		if err := s.record.Remove(); err != nil {
			s.log.Warn("liveness record cleanup failed", zap.Error(err))
		}
		s.record = nil
	}

	if s.iso != nil {
		if err := s.iso.Close(); err != nil {
			s.log.Warn("isolation group cleanup failed", zap.Error(err))
		}
	}

	if failed {
		s.setState(StateFailed)
	} else {
		s.setState(StateStopped)
	}
}

// Dispose releases the supervisor unconditionally. A running worker
// is stopped first. Dispose never fails; cleanup errors are logged.
// Any lifecycle call made afterwards returns ErrDisposed.
func (s *Supervisor) Dispose(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil
	}

	if s.State() == StateRunning {
		s.setState(StateStopping)
		s.stopLocked()
	}

	s.disposed = true
	s.log.Debug("supervisor disposed")
	return nil
}

// setState commits a transition and synchronously delivers the
// state-changed event, so observers always see a value consistent
// with State() at delivery time. Requires mu held.
func (s *Supervisor) setState(to State) {
	from := State(s.state.Load())
	if !legalTransition(from, to) {
		s.log.Error("illegal state transition dropped",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		return
	}

	s.state.Store(int32(to))
	s.log.Debug("state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)

	s.bus.emitState(StateEvent{
		Previous:  from,
		Current:   to,
		Timestamp: time.Now(),
	})

	if to.Terminal() {
		close(s.done)
	}
}
