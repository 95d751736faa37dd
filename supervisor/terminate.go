package supervisor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// terminator drives the escalating shutdown protocol: cooperative
// request, bounded wait, unconditional group kill, unbounded wait.
// It is entered at most once; concurrent duplicate calls all receive
// the result of the single run. Calling it when the worker already
// exited is a safe no-op.
type terminator struct {
	iso     isolator
	timeout time.Duration
	log     *zap.Logger

	once      sync.Once
	result    ExitStatus
	escalated bool
}

// terminate runs the protocol and returns the worker's exit status
// and whether the forceful phase was reached.
func (t *terminator) terminate(p *managedProc) (ExitStatus, bool) {
	t.once.Do(func() {
		t.result, t.escalated = t.run(p)
	})

	return t.result, t.escalated
}

func (t *terminator) run(p *managedProc) (ExitStatus, bool) {
	if p.done() {
		t.log.Debug("worker already exited")
		return p.exit, false
	}

	// close stdin first so the worker cannot hang waiting on input
	p.closeStdin()

	if err := t.iso.Graceful(p.pid); err != nil {
		// no cooperative interface; go straight to the forceful phase
		t.log.Debug("graceful shutdown unavailable", zap.Error(err))
	} else {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()

		select {
		case <-p.exited:
			return p.exit, false
		case <-timer.C:
			// expected path for stubborn workers, not an error
			t.log.Warn("graceful shutdown timed out, escalating",
				zap.Duration("timeout", t.timeout),
			)
		}
	}

	if err := t.iso.Kill(p.pid); err != nil {
		t.log.Error("forceful termination failed", zap.Error(err))
		// last resort so the unbounded wait below cannot hang forever
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	}

	// the kill signal is non-ignorable, so this wait needs no bound
	<-p.exited

	return p.exit, true
}
