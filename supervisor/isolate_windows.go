//go:build windows

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// jobIsolator isolates the worker in a kill-on-close job object so
// that terminating the job takes down the worker's whole subtree.
// The job exists before the worker does; the worker is assigned into
// it right after spawn.
type jobIsolator struct {
	job      windows.Handle
	assigned bool
	log      *zap.Logger
}

func newIsolator(log *zap.Logger) isolator {
	return &jobIsolator{log: log}
}

func (j *jobIsolator) Setup() error {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return fmt.Errorf("create job object: %w", err)
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}

	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return fmt.Errorf("configure job object: %w", err)
	}

	j.job = job
	return nil
}

func (j *jobIsolator) Assign(pid int) error {
	proc, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE,
		false,
		uint32(pid),
	)
	if err != nil {
		return fmt.Errorf("%w: open process %d: %w", ErrGroupAssign, pid, err)
	}
	defer windows.CloseHandle(proc)

	if err := windows.AssignProcessToJobObject(j.job, proc); err != nil {
		return fmt.Errorf("%w: %w", ErrGroupAssign, err)
	}

	j.assigned = true
	return nil
}

// Graceful asks the worker's console group to shut down. Workers
// without a console cannot receive the request; the returned error
// makes the caller escalate immediately.
func (j *jobIsolator) Graceful(pid int) error {
	err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pid))
	if err != nil {
		return fmt.Errorf("console ctrl event: %w", err)
	}

	return nil
}

// Kill terminates the whole job, or just the worker when assignment
// never happened.
func (j *jobIsolator) Kill(pid int) error {
	if !j.assigned || j.job == 0 {
		proc, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process %d: %w", pid, err)
		}
		return proc.Kill()
	}

	if err := windows.TerminateJobObject(j.job, 1); err != nil {
		return fmt.Errorf("terminate job object: %w", err)
	}

	return nil
}

func (j *jobIsolator) Close() error {
	if j.job == 0 {
		return nil
	}

	err := windows.CloseHandle(j.job)
	j.job = 0
	if err != nil {
		return fmt.Errorf("close job object: %w", err)
	}

	return nil
}

func applySysProcAttr(cmd *exec.Cmd, background bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    background,
	}
}
