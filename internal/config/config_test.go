package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
probe:
  nats_url: "nats://localhost:4222"
  subject: "memspectra.chunks"

importer:
  writer:
    type: "clickhouse"
    enabled: true
    clickhouse:
      host: "localhost"
      port: 9000
      database: "memspectra"
      username: "default"
      password: "secret"

api:
  listen_addr: ":8080"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.Probe.NATSURL)
	assert.Equal(t, "memspectra.chunks", cfg.Probe.Subject)
	assert.True(t, cfg.Importer.Writer.Enabled)
	assert.Equal(t, "clickhouse", cfg.Importer.Writer.Type)
	assert.Equal(t, "memspectra", cfg.Importer.Writer.ClickHouse.Database)
	assert.Equal(t, 9000, cfg.Importer.Writer.ClickHouse.Port)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe: [not: a map"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
