package supervisor

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeIsolator struct {
	gracefulErr   error
	gracefulCalls atomic.Int32
	killCalls     atomic.Int32

	// onGraceful and onKill run after the respective signal, e.g. to
	// simulate the worker reacting
	onGraceful func()
	onKill     func()
}

func (f *fakeIsolator) Setup() error         { return nil }
func (f *fakeIsolator) Assign(pid int) error { return nil }
func (f *fakeIsolator) Close() error         { return nil }

func (f *fakeIsolator) Graceful(pid int) error {
	f.gracefulCalls.Add(1)
	if f.gracefulErr != nil {
		return f.gracefulErr
	}
	if f.onGraceful != nil {
		f.onGraceful()
	}
	return nil
}

func (f *fakeIsolator) Kill(pid int) error {
	f.killCalls.Add(1)
	if f.onKill != nil {
		f.onKill()
	}
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func fakeProc() *managedProc {
	return &managedProc{
		pid:    4711,
		stdin:  nopWriteCloser{io.Discard},
		exited: make(chan struct{}),
		log:    zap.NewNop(),
	}
}

func newTestTerminator(iso isolator, timeout time.Duration) *terminator {
	return &terminator{iso: iso, timeout: timeout, log: zap.NewNop()}
}

func TestTerminate_AlreadyExited_IsNoOp(t *testing.T) {
	iso := &fakeIsolator{}
	p := fakeProc()
	var code int32 = 0
	p.exit = ExitStatus{Code: &code}
	close(p.exited)

	term := newTestTerminator(iso, time.Second)
	exit, escalated := term.terminate(p)

	assert.False(t, escalated)
	assert.Equal(t, int32(0), *exit.Code)
	assert.Equal(t, int32(0), iso.gracefulCalls.Load())
	assert.Equal(t, int32(0), iso.killCalls.Load())
}

func TestTerminate_GracefulExitWithinTimeout(t *testing.T) {
	p := fakeProc()

	iso := &fakeIsolator{}
	iso.onGraceful = func() {
		var code int32 = 0
		p.exit = ExitStatus{Code: &code}
		close(p.exited)
	}

	term := newTestTerminator(iso, time.Second)
	_, escalated := term.terminate(p)

	assert.False(t, escalated)
	assert.Equal(t, int32(1), iso.gracefulCalls.Load())
	assert.Equal(t, int32(0), iso.killCalls.Load())
}

func TestTerminate_TimeoutEscalatesToKill(t *testing.T) {
	p := fakeProc()

	iso := &fakeIsolator{}
	iso.onKill = func() {
		var sig int32 = 9
		p.exit = ExitStatus{Signal: &sig}
		close(p.exited)
	}

	start := time.Now()
	term := newTestTerminator(iso, 50*time.Millisecond)
	exit, escalated := term.terminate(p)

	assert.True(t, escalated)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, int32(1), iso.killCalls.Load())
	assert.Equal(t, int32(9), *exit.Signal)
}

func TestTerminate_GracefulUnavailable_EscalatesImmediately(t *testing.T) {
	p := fakeProc()

	iso := &fakeIsolator{gracefulErr: assert.AnError}
	iso.onKill = func() {
		var code int32 = 1
		p.exit = ExitStatus{Code: &code}
		close(p.exited)
	}

	start := time.Now()
	term := newTestTerminator(iso, time.Hour)
	_, escalated := term.terminate(p)

	assert.True(t, escalated)
	// must not have sat out the graceful bound
	assert.Less(t, time.Since(start), time.Second)
}

func TestTerminate_ConcurrentCallsRunOnce(t *testing.T) {
	p := fakeProc()

	iso := &fakeIsolator{}
	iso.onGraceful = func() {
		var code int32 = 0
		p.exit = ExitStatus{Code: &code}
		close(p.exited)
	}

	term := newTestTerminator(iso, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			term.terminate(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), iso.gracefulCalls.Load())
}
