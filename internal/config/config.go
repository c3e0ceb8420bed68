// Package config loads engine settings from a config file, .env files and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/prisma-engine/internal/adapters/connector"
)

// EnvPrefix prefixes every environment variable read by the loader, e.g.
// PRISMA_ENGINE_SERVER_ADDR for server.addr.
const EnvPrefix = "PRISMA_ENGINE"

// DefaultMaxBodyBytes is the default request body limit of the HTTP server.
const DefaultMaxBodyBytes = 4 << 20

// Config holds the engine configuration.
type Config struct {
	Provider    string
	DatabaseURL string
	SchemaPath  string
	Log         LogConfig
	Tracing     TracingConfig
	Server      ServerConfig
	Pool        PoolConfig
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig configures trace export. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr    string
	Timeout time.Duration
	// MaxBodyBytes limits request bodies. 0 means unlimited.
	MaxBodyBytes int64
}

// PoolConfig configures the SQL connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var keys = []string{
	"provider",
	"database_url",
	"schema_path",
	"log.level",
	"log.format",
	"tracing.endpoint",
	"tracing.service_name",
	"server.addr",
	"server.timeout",
	"server.max_body_bytes",
	"pool.max_open_conns",
	"pool.max_idle_conns",
	"pool.conn_max_lifetime",
}

var envReplacer = strings.NewReplacer(".", "_")

// Loader reads configuration through a filesystem abstraction.
type Loader struct {
	fs   afero.Fs
	dir  string
	home string
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs sets the filesystem. Tests use afero.NewMemMapFs.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithDir sets the working directory searched for the config and .env
// files.
func WithDir(dir string) Option {
	return func(l *Loader) { l.dir = dir }
}

// WithHome overrides the home directory.
func WithHome(home string) Option {
	return func(l *Loader) { l.home = home }
}

// NewLoader creates a loader over the OS filesystem and the current
// directory.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{fs: afero.NewOsFs(), dir: "."}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the configuration. When file is empty, .prisma-engine.yaml is
// searched in the working directory, the home directory and
// ~/.config/prisma-engine, and a missing file is not an error.
//
// Precedence, highest first: environment, .env.local, .env, config file,
// defaults.
func (l *Loader) Load(file string) (*Config, error) {
	v := viper.New()
	v.SetFs(l.fs)
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := l.homeDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(".prisma-engine")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.dir)
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "prisma-engine"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	dotenv, err := l.readDotenv()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		name := EnvPrefix + "_" + strings.ToUpper(envReplacer.Replace(key))
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}

	cfg := &Config{
		Provider:    v.GetString("provider"),
		DatabaseURL: v.GetString("database_url"),
		SchemaPath:  v.GetString("schema_path"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("tracing.endpoint"),
			ServiceName: v.GetString("tracing.service_name"),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			Timeout:      v.GetDuration("server.timeout"),
			MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
		},
		Pool: PoolConfig{
			MaxOpenConns:    v.GetInt("pool.max_open_conns"),
			MaxIdleConns:    v.GetInt("pool.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("pool.conn_max_lifetime"),
		},
	}

	// DATABASE_URL is the conventional name used by schema files.
	if cfg.DatabaseURL == "" {
		if url, ok := os.LookupEnv("DATABASE_URL"); ok {
			cfg.DatabaseURL = url
		} else {
			cfg.DatabaseURL = dotenv["DATABASE_URL"]
		}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema_path", "schema.prisma")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.service_name", "prisma-engine")
	v.SetDefault("server.addr", ":4466")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("pool.max_open_conns", 10)
	v.SetDefault("pool.max_idle_conns", 5)
	v.SetDefault("pool.conn_max_lifetime", time.Hour)
}

func (l *Loader) homeDir() (string, error) {
	if l.home != "" {
		return l.home, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return home, nil
}

// readDotenv merges .env and .env.local; the latter wins.
func (l *Loader) readDotenv() (map[string]string, error) {
	merged := make(map[string]string)
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(l.dir, name)
		raw, err := afero.ReadFile(l.fs, path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		vars, err := godotenv.Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged, nil
}

// Connector returns the connector settings.
func (c *Config) Connector() connector.Config {
	return connector.Config{
		Provider:        c.Provider,
		URL:             c.DatabaseURL,
		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
	}
}
