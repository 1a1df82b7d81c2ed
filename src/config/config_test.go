package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "workspace", cfg.Workspace)
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Engine.RetryDelay())
	assert.Equal(t, 2, cfg.Coordinator.CompleteAfter)
	assert.Equal(t, "memory", cfg.Trace.Backend)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hdlforge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace = "/tmp/rtl"

[model]
provider = "ollama"
name = "qwen2.5-coder"

[engine]
max_attempts = 5
retry_delay_seconds = 0.25

[coordinator]
max_rounds = 12

[trace]
backend = "postgres"
postgres_dsn = "postgres://localhost/hdlforge"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/rtl", cfg.Workspace)
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, 5, cfg.Engine.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.RetryDelay())
	assert.Equal(t, 12, cfg.Coordinator.MaxRounds)
	// untouched sections keep their defaults
	assert.Equal(t, 2, cfg.Coordinator.CompleteAfter)
	assert.Equal(t, "postgres", cfg.Trace.Backend)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hdlforge.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine]\nmax_attempts = 5\n"), 0o644))

	t.Setenv("HDLFORGE_MAX_ATTEMPTS", "7")
	t.Setenv("HDLFORGE_MODEL_PROVIDER", "anthropic")
	t.Setenv("HDLFORGE_RETRY_DELAY_SECONDS", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Engine.MaxAttempts)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.RetryDelay())
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("workspace = [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
