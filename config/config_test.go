package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{ConfigPathEnvVar}
	for k := range envMappings {
		keys = append(keys, strings.ToUpper(k))
	}
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "backlogger", cfg.Neo4j.Database)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Zero(t, cfg.Auth.BcryptRounds)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
neo4j:
  uri: bolt://graph.internal:7687
  database: anime
logging:
  level: debug
  format: console
mal:
  max_pages: 3
  breaker_timeout: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, "anime", cfg.Neo4j.Database)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 3, cfg.MAL.MaxPages)
	assert.Equal(t, time.Minute, cfg.MAL.BreakerTimeout)
	assert.Equal(t, 10*time.Second, cfg.MAL.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "neo4j:\n  database: anime\nlogging:\n  level: debug\n")
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("NEO4J_DATABASE", "backlog_test")
	t.Setenv("NEO4J_PASSWORD", "s3cret")
	t.Setenv("BCRYPT_ROUNDS", "6")
	t.Setenv("MAL_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("MAL_TIMEOUT", "2s")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "backlog_test", cfg.Neo4j.Database)
	assert.Equal(t, "s3cret", cfg.Neo4j.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.Auth.BcryptRounds)
	assert.Equal(t, 0.5, cfg.MAL.RequestsPerSecond)
	assert.Equal(t, 2*time.Second, cfg.MAL.Timeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "loud"}, want: "Config.Logging.Level"},
		{name: "bcrypt cost too low", env: map[string]string{"BCRYPT_ROUNDS": "2"}, want: "Config.Auth.BcryptRounds"},
		{name: "bcrypt cost too high", env: map[string]string{"BCRYPT_ROUNDS": "40"}, want: "Config.Auth.BcryptRounds"},
		{name: "no pages", env: map[string]string{"MAL_MAX_PAGES": "0"}, want: "Config.MAL.MaxPages"},
		{name: "bad uri", env: map[string]string{"NEO4J_URI": "not a uri"}, want: "Config.Neo4j.URI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "pw"
	cfg.Logging.Caller = true

	conn := cfg.Neo4j.Connection()
	assert.Equal(t, "neo4j://localhost:7687", conn.URI)
	assert.Equal(t, "pw", conn.Password)
	assert.Equal(t, "backlogger", conn.Database)

	lc := cfg.Logging.Logging()
	assert.Equal(t, "warn", lc.Level)
	assert.True(t, lc.Caller)
	assert.True(t, lc.Timestamp)
	assert.NotNil(t, lc.Output)
}
