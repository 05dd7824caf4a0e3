package util

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable consulted when no config file
// is given on the command line.
const ConfigEnv = "WFS_CONFIG"

// MountConfig holds mount settings that can live in a YAML file. Flags
// given on the command line override these values.
type MountConfig struct {
	Driver     string `yaml:"driver"`
	AllowOther bool   `yaml:"allow_other"`
	ReadOnly   bool   `yaml:"read_only"`
	SyncWrites bool   `yaml:"sync_writes"`
	Debug      bool   `yaml:"debug"`
	LogLevel   string `yaml:"log_level"`
}

// DefaultMountConfig returns the settings used when nothing is configured.
func DefaultMountConfig() MountConfig {
	return MountConfig{
		Driver:   "bazil",
		LogLevel: "info",
	}
}

// LoadMountConfig reads path, or the file named by WFS_CONFIG when path is
// empty, on top of the defaults. No file at all is not an error.
func LoadMountConfig(path string) (MountConfig, error) {
	config := DefaultMountConfig()
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, config.Validate()
}

// Validate checks that the configuration is usable.
func (c *MountConfig) Validate() error {
	switch c.Driver {
	case "bazil", "go-fuse":
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. Debug forces debug level.
func (c *MountConfig) Level() (slog.Level, error) {
	if c.Debug {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}
