package config_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/config"
)

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work", 0o755))

	cfg, err := config.NewLoader(config.WithFs(fs), config.WithDir("/work"), config.WithHome("/home/u")).Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Provider, "the schema datasource decides")
	assert.Equal(t, "schema.prisma", cfg.SchemaPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":4466", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, int64(config.DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, time.Hour, cfg.Pool.ConnMaxLifetime)
	assert.Empty(t, cfg.Tracing.Endpoint)
}

func TestPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/work/.prisma-engine.yaml", `
provider: postgresql
database_url: postgres://localhost/app
log:
  level: warn
  format: json
server:
  addr: ":9000"
  max_body_bytes: 1024
pool:
  max_open_conns: 4
`)
	write(t, fs, "/work/.env", "PRISMA_ENGINE_LOG_LEVEL=debug\nPRISMA_ENGINE_POOL_MAX_OPEN_CONNS=8\n")
	write(t, fs, "/work/.env.local", "PRISMA_ENGINE_POOL_MAX_OPEN_CONNS=16\n")
	t.Setenv("PRISMA_ENGINE_SERVER_ADDR", ":7000")

	cfg, err := config.NewLoader(config.WithFs(fs), config.WithDir("/work"), config.WithHome("/home/u")).Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", cfg.Provider)
	assert.Equal(t, "json", cfg.Log.Format, "config file")
	assert.Equal(t, "debug", cfg.Log.Level, ".env beats the config file")
	assert.Equal(t, 16, cfg.Pool.MaxOpenConns, ".env.local beats .env")
	assert.Equal(t, ":7000", cfg.Server.Addr, "environment beats everything")
	assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)

	c := cfg.Connector()
	assert.Equal(t, "postgres://localhost/app", c.URL)
	assert.Equal(t, 16, c.MaxOpenConns)
}

func TestHomeConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work", 0o755))
	write(t, fs, "/home/u/.config/prisma-engine/.prisma-engine.yaml", "tracing:\n  endpoint: collector:4317\n")

	cfg, err := config.NewLoader(config.WithFs(fs), config.WithDir("/work"), config.WithHome("/home/u")).Load("")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, "prisma-engine", cfg.Tracing.ServiceName)
}

func TestDatabaseURLFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/work/.env", "DATABASE_URL=file:dev.db\n")

	cfg, err := config.NewLoader(config.WithFs(fs), config.WithDir("/work"), config.WithHome("/home/u")).Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:dev.db", cfg.DatabaseURL)
}

func TestExplicitFileMustExist(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := config.NewLoader(config.WithFs(fs), config.WithDir("/work"), config.WithHome("/home/u")).Load("/work/missing.yaml")
	assert.Error(t, err)
}
