// Package config loads server settings from an optional TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the TOML file to load. Unset means defaults only.
const EnvConfigPath = "CAMPUSCORE_CONFIG"

// Config is the full server configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
	Storage Storage `toml:"storage"`
	Blob    Blob    `toml:"blob"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Log holds logging settings.
type Log struct {
	Level string `toml:"level"`
}

// Storage selects the persistence backend. Values here seed the
// CAMPUSCORE_STORAGE_* environment variables when those are unset, so the
// environment always wins.
type Storage struct {
	Driver      string `toml:"driver"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// Blob selects the blob storage backend, same precedence as Storage.
type Blob struct {
	Driver string `toml:"driver"`
	FSRoot string `toml:"fs_root"`
}

// Duration is a TOML-friendly wrapper over time.Duration accepting strings
// like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{15 * time.Second},
		},
		Log: Log{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// CAMPUSCORE_CONFIG when present, then environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if addr := os.Getenv("CAMPUSCORE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("CAMPUSCORE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	cfg.seedEnvironment()
	return cfg, nil
}

// seedEnvironment exports file-provided backend settings to the environment
// variables the storage factories read, without clobbering explicit values.
func (c Config) seedEnvironment() {
	seed := func(key, value string) {
		if value != "" && os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	seed("CAMPUSCORE_STORAGE_DRIVER", c.Storage.Driver)
	seed("CAMPUSCORE_SQLITE_PATH", c.Storage.SQLitePath)
	seed("CAMPUSCORE_POSTGRES_DSN", c.Storage.PostgresDSN)
	seed("CAMPUSCORE_BLOB_DRIVER", c.Blob.Driver)
	seed("CAMPUSCORE_BLOB_FS_ROOT", c.Blob.FSRoot)
}
