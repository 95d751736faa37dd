package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("db", "postgres", "-D", "/data")

	assert.Equal(t, "db", cfg.Label)
	assert.Equal(t, "postgres", cfg.Path)
	assert.Equal(t, []string{"-D", "/data"}, cfg.Args)
	assert.True(t, cfg.Background)
	assert.True(t, cfg.MonitorParent)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Label: "w", Path: "true"}.withDefaults()

	assert.Equal(t, ".", cfg.Cwd)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestConfig_WithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Label:           "w",
		Path:            "true",
		Cwd:             "/tmp",
		ShutdownTimeout: time.Minute,
	}.withDefaults()

	assert.Equal(t, "/tmp", cfg.Cwd)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.validate())
	assert.Error(t, Config{Label: "w"}.validate())
	assert.Error(t, Config{Path: "true"}.validate())
	assert.NoError(t, Config{Label: "w", Path: "true"}.validate())
}
