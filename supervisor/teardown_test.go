//go:build !windows

package supervisor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnexpectedExit_DisarmsParentMonitor(t *testing.T) {
	// pose as a supervised child of this very process, so the parent
	// monitor arms and its counterpart stays alive for the duration
	t.Setenv(ParentPidEnv, strconv.Itoa(os.Getpid()))

	sup, err := New(Config{
		Label:           fmt.Sprintf("warden-test-%d", time.Now().UnixNano()),
		Path:            "sh",
		Args:            []string{"-c", "exit 0"},
		MonitorParent:   true,
		ShutdownTimeout: time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.Dispose(context.Background()) })

	require.NoError(t, sup.Start(context.Background()))

	select {
	case <-sup.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not reach a terminal state")
	}

	sup.mu.Lock()
	armed := sup.monitor != nil
	sup.mu.Unlock()

	assert.False(t, armed,
		"the liveness monitor must stand down once the supervisor is done")
}
