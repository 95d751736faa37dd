package config

import (
	"time"

	"github.com/lambda-feedback/warden/util/conf"
)

// Config is the application configuration, resolved from defaults,
// an optional config file, environment variables and cli flags, in
// that order.
type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Worker is the supervised worker configuration
	Worker WorkerConfig `conf:"worker"`
}

// WorkerConfig describes the worker process to supervise.
type WorkerConfig struct {
	// Label names the worker, unique per host
	Label string `conf:"label"`

	// Path is the command to invoke to start the worker process
	Path string `conf:"path"`

	// Args are the arguments to pass to the worker process
	Args []string `conf:"args"`

	// Cwd is the working directory for the worker process
	Cwd string `conf:"cwd"`

	// Env is a map of extra environment variables for the worker
	Env map[string]string `conf:"env"`

	// Background hides the worker's window on Windows
	Background bool `conf:"background"`

	// MonitorParent arms parent liveness monitoring when this
	// process is itself supervised
	MonitorParent bool `conf:"monitor_parent"`

	// ShutdownTimeout bounds the graceful termination phase
	ShutdownTimeout time.Duration `conf:"shutdown_timeout"`
}

// DefaultConfig holds the documented defaults.
var DefaultConfig = conf.DefaultConfig{
	"log_level":               "info",
	"log_format":              "production",
	"worker.label":            "worker",
	"worker.background":       true,
	"worker.monitor_parent":   true,
	"worker.shutdown_timeout": 5 * time.Second,
}
