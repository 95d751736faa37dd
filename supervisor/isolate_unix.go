//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
)

// groupIsolator isolates the worker in its own process group so that
// signals reach everything the worker spawns, not just the direct
// child. The group comes into existence with the worker via Setpgid;
// Assign verifies the worker actually leads it, since default
// inheritance cannot be trusted once redirection wrappers are
// involved.
type groupIsolator struct {
	pgid int
	log  *zap.Logger
}

func newIsolator(log *zap.Logger) isolator {
	return &groupIsolator{log: log}
}

func (g *groupIsolator) Setup() error {
	// the kernel creates the group at spawn time, via SysProcAttr
	return nil
}

func (g *groupIsolator) Assign(pid int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return fmt.Errorf("%w: getpgid %d: %w", ErrGroupAssign, pid, err)
	}

	if pgid != pid {
		// the worker did not become its own group leader; place it
		if err := syscall.Setpgid(pid, pid); err != nil {
			return fmt.Errorf("%w: setpgid %d: %w", ErrGroupAssign, pid, err)
		}
		pgid = pid
	}

	g.pgid = pgid
	return nil
}

func (g *groupIsolator) Graceful(pid int) error {
	return g.signal(pid, syscall.SIGTERM)
}

func (g *groupIsolator) Kill(pid int) error {
	return g.signal(pid, syscall.SIGKILL)
}

// signal delivers sig to the whole group, or to the single process
// when assignment never happened. A vanished target is not an error:
// the processes being gone is the desired outcome.
func (g *groupIsolator) signal(pid int, sig syscall.Signal) error {
	target := pid
	if g.pgid != 0 {
		target = -g.pgid
	}

	if err := syscall.Kill(target, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal %d: %w", target, err)
	}

	return nil
}

func (g *groupIsolator) Close() error {
	// process groups need no explicit teardown
	return nil
}

func applySysProcAttr(cmd *exec.Cmd, background bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
