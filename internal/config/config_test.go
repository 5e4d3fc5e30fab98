package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/tavla.db")
	if cfg.Database.Path != "/tmp/tavla.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Server.Bind != "127.0.0.1:8080" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
	if cfg.Realtime.Channel != "tavla:events" {
		t.Fatalf("unexpected channel %q", cfg.Realtime.Channel)
	}
	if cfg.LockWait() != 3*time.Second {
		t.Fatalf("unexpected lock wait %v", cfg.LockWait())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/tavla.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/tavla.db"

[server]
bind = "0.0.0.0:9090"

[server.tokens]
"tok-1" = "u-alice"

[realtime]
redis_addr = "localhost:6379"
origin = "gateway-1"

[engine]
lock_wait_ms = 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/tavla.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Server.Bind != "0.0.0.0:9090" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
	if cfg.Server.Tokens["tok-1"] != "u-alice" {
		t.Fatalf("unexpected tokens %#v", cfg.Server.Tokens)
	}
	if cfg.Realtime.RedisAddr != "localhost:6379" || cfg.Realtime.Origin != "gateway-1" {
		t.Fatalf("unexpected realtime config %#v", cfg.Realtime)
	}
	if cfg.LockWait() != 500*time.Millisecond {
		t.Fatalf("unexpected lock wait %v", cfg.LockWait())
	}
	// Sections absent from the file keep their defaults.
	if cfg.Realtime.Channel != "tavla:events" {
		t.Fatalf("unexpected channel %q", cfg.Realtime.Channel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"empty db path": `
[database]
path = "  "
`,
		"negative lock wait": `
[database]
path = "/custom/tavla.db"

[engine]
lock_wait_ms = -1
`,
		"empty token user": `
[database]
path = "/custom/tavla.db"

[server.tokens]
"tok-1" = ""
`,
	} {
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := Load(path, Default("/tmp/default.db")); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}
