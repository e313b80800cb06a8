package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/adjoint/pkg/fuzz"
)

// Cache backends selectable in the config file.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// Config mirrors config.toml. Zero values mean "use the default".
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Render RenderConfig `toml:"render"`
	Fuzz   FuzzConfig   `toml:"fuzz"`
	Serve  ServeConfig  `toml:"serve"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	RedisURL string   `toml:"redis_url"`
	Dir      string   `toml:"dir"`
	TTL      Duration `toml:"ttl"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	Format   string `toml:"format"`
	Detailed bool   `toml:"detailed"`
}

// FuzzConfig holds defaults for the fuzz and check commands.
type FuzzConfig struct {
	Inputs    int   `toml:"inputs"`
	Ops       int   `toml:"ops"`
	Secondary int   `toml:"secondary"`
	Count     int   `toml:"count"`
	Seed      int64 `toml:"seed"`
}

// ServeConfig holds defaults for the serve command.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string ("24h") in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// defaultConfig returns the built-in settings.
func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{Backend: backendFile},
		Fuzz: FuzzConfig{
			Inputs:    fuzz.DefaultOptions.Inputs,
			Ops:       fuzz.DefaultOptions.Ops,
			Secondary: fuzz.DefaultOptions.Secondary,
			Count:     10,
			Seed:      1,
		},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

// loadConfig reads path on top of the defaults. A missing file is not an
// error; an empty path means the XDG location.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return defaultConfig(), nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}

	switch cfg.Cache.Backend {
	case backendFile, backendRedis, backendNone:
	case "":
		cfg.Cache.Backend = backendFile
	default:
		return cfg, fmt.Errorf("config %s: unknown cache backend %q", path, cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == backendRedis && cfg.Cache.RedisURL == "" {
		return cfg, fmt.Errorf("config %s: cache.redis_url is required for the redis backend", path)
	}
	return cfg, nil
}

// configDir returns the config directory using XDG standard (~/.config/adjoint/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
