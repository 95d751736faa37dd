package supervisor

import (
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds the graceful phase of the termination
// protocol when the config does not set its own bound.
const DefaultShutdownTimeout = 5 * time.Second

type Config struct {
	// Label names the supervised process. It must be unique per host
	// as it is used to name on-disk artifacts such as the liveness
	// record.
	Label string

	// Path is the path or name of the binary to execute
	Path string

	// Args is the list of arguments to pass to the worker
	Args []string

	// Cwd is the working directory in which the worker runs.
	// Defaults to the current directory.
	Cwd string

	// Env is a map of additional environment variables to set for
	// the worker. Entries may override inherited variables, but
	// never the parent-identity variable.
	Env map[string]string

	// Background controls window visibility on Windows. It has no
	// effect on stream redirection, which is always enabled.
	Background bool

	// MonitorParent arms the parent liveness monitor when this
	// process is itself a supervised child.
	MonitorParent bool

	// ShutdownTimeout bounds the graceful phase of the termination
	// protocol. Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a config populated with the documented
// defaults for the given worker command.
func DefaultConfig(label, path string, args ...string) Config {
	return Config{
		Label:           label,
		Path:            path,
		Args:            args,
		Background:      true,
		MonitorParent:   true,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.Cwd == "" {
		c.Cwd = "."
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

func (c Config) validate() error {
	if c.Label == "" {
		return fmt.Errorf("config: label is required")
	}
	if c.Path == "" {
		return fmt.Errorf("config: executable path is required")
	}
	return nil
}
