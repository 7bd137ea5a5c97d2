package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server:
  port: 9090
identity:
  issuer: https://auth.example.com
  audience: loom-api
  jwks_url: https://auth.example.com/.well-known/jwks.json
provider:
  base_url: https://gateway.example.com
  default_model: gpt-test
workflow:
  step_timeout: 30s
  max_steps: 10
`

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "LOOM_DATABASE_URL", cfg.Database.DSNEnv)
	assert.Equal(t, 60*time.Second, cfg.Workflow.StepTimeout)
	assert.Equal(t, 20, cfg.Workflow.MaxSteps)
	assert.Equal(t, 3, cfg.Provider.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Provider.CircuitBreaker.FailureThreshold)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	// File values.
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://auth.example.com", cfg.Identity.Issuer)
	assert.Equal(t, "gpt-test", cfg.Provider.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.Workflow.StepTimeout)
	assert.Equal(t, 10, cfg.Workflow.MaxSteps)

	// Defaults preserved where the file is silent.
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.Retry.BackoffInitial)
	assert.Equal(t, []string{"RS256"}, cfg.Identity.Algorithms)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, validConfig)

	t.Setenv("LOOM_SERVER_PORT", "7070")
	t.Setenv("LOOM_DATABASE_DRIVER", "memory")
	t.Setenv("LOOM_OBSERVABILITY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing issuer",
			mutate: func(c *Config) { c.Identity.Issuer = "" },
			want:   "identity.issuer is required",
		},
		{
			name:   "missing jwks url",
			mutate: func(c *Config) { c.Identity.JWKSURL = "" },
			want:   "identity.jwks_url is required",
		},
		{
			name:   "missing audience",
			mutate: func(c *Config) { c.Identity.Audience = "" },
			want:   "identity.audience is required",
		},
		{
			name:   "missing provider base url",
			mutate: func(c *Config) { c.Provider.BaseURL = "" },
			want:   "provider.base_url is required",
		},
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port must be between 1 and 65535",
		},
		{
			name:   "invalid max steps",
			mutate: func(c *Config) { c.Workflow.MaxSteps = 0 },
			want:   "workflow.max_steps must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Identity.Issuer = "https://auth.example.com"
			cfg.Identity.Audience = "loom-api"
			cfg.Identity.JWKSURL = "https://auth.example.com/jwks.json"
			cfg.Provider.BaseURL = "https://gateway.example.com"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
