package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.Backend != backendFile {
		t.Errorf("Backend = %q, want %q", cfg.Cache.Backend, backendFile)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Serve.Addr)
	}
	if cfg.Fuzz.Count != 10 || cfg.Fuzz.Seed != 1 {
		t.Errorf("Fuzz = %+v, want count 10 and seed 1", cfg.Fuzz)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "none"
ttl = "36h"

[render]
format = "dot"
detailed = true

[fuzz]
ops = 40
seed = 99

[serve]
addr = "127.0.0.1:9000"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.Backend != backendNone {
		t.Errorf("Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL.Duration != 36*time.Hour {
		t.Errorf("TTL = %v, want 36h", cfg.Cache.TTL.Duration)
	}
	if cfg.Render.Format != "dot" || !cfg.Render.Detailed {
		t.Errorf("Render = %+v", cfg.Render)
	}
	if cfg.Fuzz.Ops != 40 || cfg.Fuzz.Seed != 99 {
		t.Errorf("Fuzz = %+v", cfg.Fuzz)
	}
	if cfg.Fuzz.Count != 10 {
		t.Errorf("Fuzz.Count = %d, want the default 10", cfg.Fuzz.Count)
	}
	if cfg.Serve.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Serve.Addr)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown key", "[cache]\nbackends = \"file\"\n", "unknown key"},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n", "unknown cache backend"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n", "redis_url"},
		{"bad duration", "[cache]\nttl = \"soon\"\n", "config"},
		{"bad toml", "[cache\n", "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
