package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_OverlaysValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	body := `{
		"endpoint_addr": ":9999",
		"store_backend": "postgres",
		"database_dsn": "postgres://u:p@localhost:5432/botkeeper",
		"secret_key": "other",
		"access_token_validity_duration": "30m",
		"shutdown_timeout": "5s"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9999", cfg.EndpointAddr)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://u:p@localhost:5432/botkeeper", cfg.DatabaseDSN)
	assert.Equal(t, "other", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)

	// untouched values keep their defaults
	assert.Equal(t, "users.json", cfg.StoreFilePath)
	assert.Equal(t, "botkeeper.records", cfg.KafkaTopic)
}

func TestParseJson_NoFile(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":3000", cfg.EndpointAddr)
}

func TestParseJson_InvalidJSONPanics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	assert.Panics(t, func() { parseJson(cfg) })
}
