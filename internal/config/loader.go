package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// built-in defaults. Missing files are not errors; malformed TOML is.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := Default()

	if globalPath != "" {
		if err := mergeFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads configuration from the conventional paths.
// Global: ~/.taskpipe/config.toml. Project: .taskpipe.toml in the working
// directory.
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	return Load(filepath.Join(homeDir, ".taskpipe", "config.toml"), ".taskpipe.toml")
}

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("config: target must not be empty")
	}
	if c.LineWidth <= 0 {
		return fmt.Errorf("config: line_width must be positive, got %d", c.LineWidth)
	}
	if c.DefaultTask == "" {
		return fmt.Errorf("config: default_task must not be empty")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch.interval must be positive, got %s", c.Watch.Interval)
	}
	for name, t := range c.Tasks {
		if len(t.Commands) == 0 {
			return fmt.Errorf("config: task %q declares no commands", name)
		}
		for i, argv := range t.Commands {
			if len(argv) == 0 {
				return fmt.Errorf("config: task %q command %d is empty", name, i)
			}
		}
		if t.Retries < 0 {
			return fmt.Errorf("config: task %q has negative retries", name)
		}
	}
	return nil
}

// mergeFile decodes a TOML file on top of the base config. Only keys present
// in the file are overwritten, so partial files override selectively.
// A missing file is silently skipped.
func mergeFile(base *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result:  base,
		TagName: "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}
