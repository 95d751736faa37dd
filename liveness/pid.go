package liveness

import "github.com/shirou/gopsutil/v3/process"

// Alive reports whether a process with the given pid currently
// exists. Errors from the process-table lookup are treated as "not
// alive": the caller reacts by shutting down, which is the safe
// direction for a liveness check.
func Alive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}
