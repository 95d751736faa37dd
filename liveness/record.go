// Package liveness implements the parent/child liveness-detection
// mechanism: PID-file records proving their owner is alive, and a
// monitor that detects loss of a counterpart process either by
// polling the process table or by watching the record file.
package liveness

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Record is a filesystem artifact whose presence proves its owner
// process is alive. It is written whole in one call and deleted on
// clean exit, so readers never observe a partial write.
type Record struct {
	path string
	pid  int
	log  *zap.Logger
}

// NewRecord returns the record owned by pid under label, placed in
// the shared temporary directory.
func NewRecord(label string, pid int, log *zap.Logger) *Record {
	return &Record{
		path: RecordPath(label, pid),
		pid:  pid,
		log:  log,
	}
}

// RecordPath returns the deterministic record filename for a given
// owner: <label>_<pid>.pid in the shared temporary directory.
func RecordPath(label string, pid int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s_%d.pid", label, pid))
}

// FindRecord resolves the record of a counterpart by globbing on its
// known pid, for readers that do not know the writer's label.
func FindRecord(pid int) (string, bool) {
	pattern := filepath.Join(os.TempDir(), fmt.Sprintf("*_%d.pid", pid))

	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}

	return matches[0], true
}

func (r *Record) Path() string {
	return r.path
}

// Write publishes the record. The owner pid is written as plain text
// in a single call.
func (r *Record) Write() error {
	if err := os.WriteFile(r.path, []byte(fmt.Sprintf("%d", r.pid)), 0o644); err != nil {
		return fmt.Errorf("write liveness record: %w", err)
	}

	r.log.Debug("liveness record written", zap.String("path", r.path))
	return nil
}

// Remove deletes the record. A record that is already gone is not an
// error.
func (r *Record) Remove() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove liveness record: %w", err)
	}

	return nil
}
