package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  host: db.internal
  port: 6432
  user: dispatch
  password: secret
  database: dispatch
rabbitmq:
  user: guest
  password: guest
services:
  dispatch_service: 4000
  public_base_url: "https://dispatch.example.com/"
jwt:
  secret_key: "abc"
  ttl: 30m
chat:
  max_attachment_bytes: 2048
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileReadsYAMLAndDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, 6432, cfg.Database.Port)
	require.Equal(t, "dispatch", cfg.Database.Name)
	require.Equal(t, "localhost", cfg.RabbitMQ.Host)
	require.Equal(t, 5672, cfg.RabbitMQ.Port)
	require.Equal(t, "/", cfg.RabbitMQ.VHost)
	require.Equal(t, 10*time.Second, cfg.RabbitMQ.Heartbeat)
	require.Equal(t, 30*time.Second, cfg.RabbitMQ.ReconnectMaxBackoff)
	require.Equal(t, 4000, cfg.Services.DispatchServicePort)
	require.Equal(t, "https://dispatch.example.com", cfg.Services.PublicBaseURL)
	require.Equal(t, "abc", cfg.JWT.SecretKey)
	require.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	require.Equal(t, int64(2048), cfg.Chat.MaxAttachmentBytes)
	require.Equal(t, 30, cfg.Chat.BookingWindowMinutes)
}

func TestLoadFromFileEnvOverrides(t *testing.T) {
	t.Setenv("DISPATCH_DATABASE_HOST", "override-host")
	t.Setenv("DISPATCH_SERVICES_DISPATCH_SERVICE", "5000")

	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "override-host", cfg.Database.Host)
	require.Equal(t, 5000, cfg.Services.DispatchServicePort)
}

func TestLoadFromFileGeneratesSecretAndBaseURL(t *testing.T) {
	body := `
database:
  user: u
  password: p
  database: d
rabbitmq:
  user: u
  password: p
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.JWT.SecretKey)
	require.Equal(t, "http://localhost:3010", cfg.Services.PublicBaseURL)
	require.Equal(t, int64(10<<20), cfg.Chat.MaxAttachmentBytes)
}

func TestLoadFromFileJoinsProblems(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "database:\n  port: 70000\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "database.port must be in 1..65535")
	require.Contains(t, err.Error(), "; rabbitmq.user is required")
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}
