package config

import "time"

// TaskConfig declares one task: its prerequisites and the commands it runs.
// Command argvs may reference {target} and {width}, which are expanded from
// Config.Target and Config.LineWidth when a plan is built.
type TaskConfig struct {
	Description string     `mapstructure:"description" toml:"description,omitempty"`
	Needs       []string   `mapstructure:"needs"       toml:"needs,omitempty"`
	Commands    [][]string `mapstructure:"commands"    toml:"commands"`
	Retries     int        `mapstructure:"retries"     toml:"retries,omitempty"`
}

// HistoryConfig controls run history persistence.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path"    toml:"path,omitempty"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval" toml:"interval"`
}

// Config is the top-level configuration.
type Config struct {
	// Target is the script every built-in task operates on.
	Target string `mapstructure:"target" toml:"target"`

	// LineWidth is the formatting width constraint passed to the
	// formatter and linter via the {width} placeholder.
	LineWidth int `mapstructure:"line_width" toml:"line_width"`

	// DefaultTask runs when no task name is given on the command line.
	DefaultTask string `mapstructure:"default_task" toml:"default_task"`

	History HistoryConfig `mapstructure:"history" toml:"history"`
	Watch   WatchConfig   `mapstructure:"watch"   toml:"watch"`

	// Tasks overrides or extends the built-in task definitions.
	Tasks map[string]TaskConfig `mapstructure:"tasks" toml:"tasks"`
}
