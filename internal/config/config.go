// Package config loads sidecar settings from an optional YAML file layered
// under WHISPERX_GO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/typist/gowhisperx/internal/device"
)

// Config holds all sidecar configuration.
type Config struct {
	// ModelDir holds ggml model files named ggml-<size>.bin.
	ModelDir string `yaml:"model_dir"`
	// ModelSize is the whisper model size label (tiny, base, small, ...).
	ModelSize string `yaml:"model_size"`
	// Language for the alignment model; "en" by default.
	Language string `yaml:"language"`
	// Device forces a compute target: auto, cuda, mps or cpu.
	Device   string `yaml:"device"`
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		ModelDir:  "./models",
		ModelSize: "base",
		Language:  "en",
		Device:    "auto",
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path falls back to WHISPERX_GO_CONFIG; a missing file
// is not an error, the defaults simply stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("WHISPERX_GO_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ModelDir = getenv("WHISPERX_GO_MODEL_DIR", cfg.ModelDir)
	cfg.ModelSize = getenv("WHISPERX_GO_MODEL_SIZE", cfg.ModelSize)
	cfg.Language = getenv("WHISPERX_GO_LANGUAGE", cfg.Language)
	cfg.Device = getenv("WHISPERX_GO_DEVICE", cfg.Device)
	cfg.LogLevel = getenv("WHISPERX_GO_LOG_LEVEL", cfg.LogLevel)
	cfg.ModelDir = expandTilde(cfg.ModelDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("model_dir must not be empty")
	}
	if c.ModelSize == "" {
		return fmt.Errorf("model_size must not be empty")
	}
	switch c.Device {
	case "auto", "cuda", "mps", "cpu":
	default:
		return fmt.Errorf("device must be auto, cuda, mps or cpu, got %q", c.Device)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be trace, debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// ForcedDevice returns the configured device override, or "" for auto so
// the caller runs the normal probe order.
func (c *Config) ForcedDevice() device.Device {
	switch c.Device {
	case "cuda":
		return device.CUDA
	case "mps":
		return device.MPS
	case "cpu":
		return device.CPU
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
