package supervisor

import "fmt"

var (
	// ErrInvalidState is returned when Start is called in any state
	// other than NotStarted.
	ErrInvalidState = fmt.Errorf("invalid state transition")

	// ErrSpawn is returned when the OS spawn call fails. The start
	// is unwound and not retried.
	ErrSpawn = fmt.Errorf("spawn worker")

	// ErrGroupAssign is returned when the worker could not be placed
	// into its isolation group. Fatal to the start.
	ErrGroupAssign = fmt.Errorf("assign worker to isolation group")

	// ErrDisposed is returned by any call made after Dispose.
	ErrDisposed = fmt.Errorf("supervisor disposed")
)
