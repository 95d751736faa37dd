package liveness_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/lambda-feedback/warden/liveness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func uniqueLabel() string {
	return fmt.Sprintf("warden-test-%d", time.Now().UnixNano())
}

func TestRecord_WriteAndRemove(t *testing.T) {
	record := liveness.NewRecord(uniqueLabel(), os.Getpid(), zap.NewNop())
	t.Cleanup(func() { _ = record.Remove() })

	require.NoError(t, record.Write())

	content, err := os.ReadFile(record.Path())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", os.Getpid()), string(content))

	require.NoError(t, record.Remove())
	_, err = os.Stat(record.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRecord_RemoveMissingIsNoError(t *testing.T) {
	record := liveness.NewRecord(uniqueLabel(), os.Getpid(), zap.NewNop())

	assert.NoError(t, record.Remove())
}

func TestRecordPath_Naming(t *testing.T) {
	path := liveness.RecordPath("db", 1234)

	assert.Contains(t, path, "db_1234.pid")
	assert.Contains(t, path, os.TempDir())
}

func TestFindRecord_ResolvesByPid(t *testing.T) {
	record := liveness.NewRecord(uniqueLabel(), os.Getpid(), zap.NewNop())
	require.NoError(t, record.Write())
	t.Cleanup(func() { _ = record.Remove() })

	path, found := liveness.FindRecord(os.Getpid())
	require.True(t, found)
	assert.Contains(t, path, fmt.Sprintf("_%d.pid", os.Getpid()))
}

func TestFindRecord_AbsentPid(t *testing.T) {
	// pids are never negative, so no record can match
	_, found := liveness.FindRecord(-1)
	assert.False(t, found)
}
