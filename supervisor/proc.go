package supervisor

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ExitStatus describes how the worker exited.
type ExitStatus struct {
	// Code is the exit code of the process
	Code *int32

	// Signal is the signal that caused the process to exit
	Signal *int32
}

// managedProc is the supervisor's exclusive handle on the spawned
// worker: the native process, its redirected streams, and an exit
// channel closed once the process is reaped.
type managedProc struct {
	pid    int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// exit is valid only after exited is closed
	exit   ExitStatus
	exited chan struct{}

	log *zap.Logger
}

// reap blocks on the process and publishes its exit status. It must
// run in its own goroutine, exactly once per spawn.
func (p *managedProc) reap() {
	err := p.cmd.Wait()

	p.exit = exitStatus(err)
	close(p.exited)
}

// done reports whether the process has already been reaped.
func (p *managedProc) done() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// closeStdin closes the worker's input so it cannot hang waiting for
// more of it during shutdown.
func (p *managedProc) closeStdin() {
	if err := p.stdin.Close(); err != nil {
		p.log.Debug("close stdin failed", zap.Error(err))
	}
}

// pump decodes lines from one redirected stream and hands each to
// emit with its capture timestamp. It returns when the stream hits
// EOF, which happens once the worker exits and the pipe drains.
func (p *managedProc) pump(r io.Reader, emit func(string, time.Time), wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text(), time.Now())
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("stream pump ended with error", zap.Error(err))
	}
}

func exitStatus(err error) ExitStatus {
	var cell int32
	var code *int32
	var signo *int32

	if err == nil {
		code = &cell
	} else if exitError, ok := err.(*exec.ExitError); ok {
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			if c := status.ExitStatus(); c >= 0 {
				cell = int32(c)
				code = &cell
			} else {
				cell = int32(status.Signal())
				signo = &cell
			}
		}
	}

	if code == nil && signo == nil {
		cell = 1
		code = &cell
	}

	return ExitStatus{
		Code:   code,
		Signal: signo,
	}
}
