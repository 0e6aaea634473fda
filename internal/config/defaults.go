package config

import "time"

// Default returns the built-in configuration: the fmt -> lint -> run pipeline
// over the target script.
//
// fmt is a prerequisite of lint (and transitively of run) because fmt rewrites
// the file that lint and the script invocation consume.
func Default() *Config {
	return &Config{
		Target:      "mug.py",
		LineWidth:   79,
		DefaultTask: "run",
		History: HistoryConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Interval: 5 * time.Second,
		},
		Tasks: map[string]TaskConfig{
			"fmt": {
				Description: "reorder imports and reformat the target script",
				Commands: [][]string{
					{"isort", "--line-length", "{width}", "{target}"},
					{"black", "--line-length", "{width}", "{target}"},
				},
			},
			"lint": {
				Description: "run static style and correctness checks",
				Needs:       []string{"fmt"},
				Commands: [][]string{
					{"flake8", "--max-line-length", "{width}", "{target}"},
				},
			},
			"run": {
				Description: "format, lint, then execute the target script",
				Needs:       []string{"fmt", "lint"},
				Commands: [][]string{
					{"python3", "{target}"},
				},
			},
		},
	}
}
