package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inDir runs the test from dir so Load sees only the files placed there.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("WHP_API_URL", "https://api.example.test/v1")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test/v1", cfg.API.BaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxFileSize)
	assert.Equal(t, 2*time.Hour, cfg.Import.SessionTTL)
	assert.Equal(t, "/whp/import", cfg.Import.BasePath)
	assert.Equal(t, 8, cfg.Validation.Password.MinLength)
	assert.True(t, cfg.Validation.Password.RequireUpper)
	assert.False(t, cfg.Validation.TaxID.Checksum)
	assert.Empty(t, cfg.Redis.Host)
}

func TestLoadFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(`
server:
  port: 9000
  allowed_origins: ["https://whp.example.test"]
api:
  base_url: https://file.example.test
  timeout: 5s
import:
  page_size: 20
validation:
  password:
    min_length: 12
    require_special: true
  tax_id:
    checksum: true
`), 0o644))
	inDir(t, dir)
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over the file")
	assert.Equal(t, []string{"https://whp.example.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://file.example.test", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 20, cfg.Import.PageSize)
	assert.Equal(t, 12, cfg.Validation.Password.MinLength)
	assert.True(t, cfg.Validation.Password.RequireSpecial)
	assert.True(t, cfg.Validation.Password.RequireDigit, "unset keys keep their defaults")
	assert.True(t, cfg.Validation.TaxID.Checksum)
}

func TestLoadRequiresAPIBaseURL(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("WHP_API_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "api.base_url")
}
