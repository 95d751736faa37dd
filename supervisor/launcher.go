package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParentPidEnv is the environment variable carrying the supervisor's
// own pid into the worker. A worker may read it to locate its parent
// and the parent's liveness record. It is never user-overridable.
const ParentPidEnv = "WARDEN_SUPERVISOR_PID"

// ParentPid returns the pid injected by a supervising parent, if this
// process was spawned by one.
func ParentPid() (int, bool) {
	raw, ok := os.LookupEnv(ParentPidEnv)
	if !ok || raw == "" {
		return 0, false
	}

	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return pid, true
}

// launcher spawns the worker with all three standard streams
// redirected, regardless of background mode.
type launcher struct {
	cfg Config
	log *zap.Logger
}

func (l *launcher) spawn() (*managedProc, error) {
	cmd := exec.Command(l.cfg.Path, l.cfg.Args...)
	cmd.Dir = l.cfg.Cwd
	cmd.Env = buildEnv(l.cfg.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin: %w", ErrSpawn, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout: %w", ErrSpawn, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr: %w", ErrSpawn, err)
	}

	applySysProcAttr(cmd, l.cfg.Background)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	l.log.Info("worker spawned",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("path", l.cfg.Path),
	)

	return &managedProc{
		pid:    cmd.Process.Pid,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		exited: make(chan struct{}),
		log:    l.log.Named("proc").With(zap.Int("pid", cmd.Process.Pid)),
	}, nil
}

// buildEnv merges the inherited environment with user overrides and
// injects the parent-identity variable last, so user entries can
// override anything except it.
func buildEnv(overrides map[string]string) []string {
	env := make([]string, 0, len(os.Environ())+len(overrides)+1)

	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, ParentPidEnv+"=") {
			continue
		}
		env = append(env, kv)
	}

	for k, v := range overrides {
		if k == ParentPidEnv {
			continue
		}
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return append(env, fmt.Sprintf("%s=%d", ParentPidEnv, os.Getpid()))
}
