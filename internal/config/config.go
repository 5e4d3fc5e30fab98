// Package config loads the service's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Realtime RealtimeConfig `toml:"realtime"`
	Engine   EngineConfig   `toml:"engine"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	// Tokens maps bearer tokens to user ids. Deployments with a real identity
	// provider leave this empty and front the gateway with their own auth.
	Tokens map[string]string `toml:"tokens"`
}

type RealtimeConfig struct {
	// RedisAddr enables cross-process event relay when non-empty.
	RedisAddr string `toml:"redis_addr"`
	Channel   string `toml:"channel"`
	// Origin identifies this process on the relay channel; defaults to the
	// hostname.
	Origin string `toml:"origin"`
	// Buffer is the per-connection message buffer in the hub.
	Buffer int `toml:"buffer"`
}

type EngineConfig struct {
	// LockWaitMS bounds how long a mutation waits for a contended column, in
	// milliseconds.
	LockWaitMS int `toml:"lock_wait_ms"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1:8080",
		},
		Realtime: RealtimeConfig{
			Channel: "tavla:events",
			Buffer:  16,
		},
		Engine: EngineConfig{
			LockWaitMS: 3000,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server bind address is required")
	}
	for token, userID := range c.Server.Tokens {
		if strings.TrimSpace(token) == "" {
			return errors.New("server.tokens contains an empty token")
		}
		if strings.TrimSpace(userID) == "" {
			return fmt.Errorf("server.tokens[%q] maps to an empty user id", token)
		}
	}
	if c.Realtime.Buffer < 0 {
		return errors.New("realtime.buffer must be >= 0")
	}
	if c.Engine.LockWaitMS < 0 {
		return errors.New("engine.lock_wait_ms must be >= 0")
	}
	return nil
}

// LockWait returns the configured lock wait as a duration.
func (c Config) LockWait() time.Duration {
	return time.Duration(c.Engine.LockWaitMS) * time.Millisecond
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
