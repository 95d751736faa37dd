package supervisor

// isolator is the platform isolation and termination capability. One
// variant exists per platform, selected once at construction; no
// other call site branches on the host OS.
//
// Lifecycle: Setup is called before the worker is spawned, Assign
// right after, Close on every exit path. Graceful and Kill implement
// the two phases of the termination protocol, delivered to the whole
// isolation group when the worker was assigned, falling back to the
// single process when a failed start left it unassigned.
type isolator interface {
	// Setup creates the isolation container. Called before spawn;
	// failure is fatal to Start.
	Setup() error

	// Assign places the spawned worker into the container. Failure
	// is fatal to Start and unwinds it.
	Assign(pid int) error

	// Graceful delivers the cooperative shutdown request. An error
	// means the request could not be delivered and the caller should
	// escalate immediately.
	Graceful(pid int) error

	// Kill delivers the unconditional termination request.
	Kill(pid int) error

	// Close releases the container handle. Safe to call more than
	// once.
	Close() error
}
