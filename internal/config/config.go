package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all larder configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Units    UnitsConfig    `toml:"units"`
	Exercise ExerciseConfig `toml:"exercise"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type UnitsConfig struct {
	// BestEffort treats unconvertible ingredient quantities as serving
	// counts (reported as warnings) instead of failing the write.
	BestEffort bool `toml:"best_effort"`
}

type ExerciseConfig struct {
	// WeightLbs is the body weight used by the calorie model.
	WeightLbs float64 `toml:"weight_lbs"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Units: UnitsConfig{
			BestEffort: false,
		},
		Exercise: ExerciseConfig{
			WeightLbs: 150,
		},
	}
}

// DefaultPath returns the default config path: ~/.larder/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".larder", "config.toml"), nil
}

// Load reads a TOML config file over the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
