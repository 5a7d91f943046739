package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RunConfig is the YAML file accepted by "civil run --config". Every
// field is optional; a flag given on the command line wins over the
// file.
//
//	types: ./types
//	root: World
//	table: Main
//	init: init
//	db: ./civil.db
//	seed: 42
//	max_events: 10000
type RunConfig struct {
	// Types is the types directory, relative to the config file. Used
	// when no directory argument is given.
	Types     string  `yaml:"types"`
	Root      string  `yaml:"root"`
	Table     string  `yaml:"table"`
	Init      string  `yaml:"init"`
	Database  string  `yaml:"db"`
	Seed      *uint64 `yaml:"seed"`
	StartTime *int64  `yaml:"start_time"`
	MaxSteps  *uint64 `yaml:"max_steps"`
	MaxEvents *int64  `yaml:"max_events"`
}

// LoadRunConfig reads a run configuration. Unknown keys are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Types != "" && !filepath.IsAbs(cfg.Types) {
		cfg.Types = filepath.Join(filepath.Dir(path), cfg.Types)
	}
	if cfg.Database != "" && cfg.Database != ":memory:" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(filepath.Dir(path), cfg.Database)
	}
	if cfg.MaxEvents != nil && *cfg.MaxEvents < 0 {
		return nil, fmt.Errorf("config %s: max_events must not be negative", path)
	}
	return &cfg, nil
}

// apply copies config values into opts for every flag the user did not
// set explicitly.
func (c *RunConfig) apply(cmd *cobra.Command, opts *RunOptions) {
	unset := func(name string) bool { return !cmd.Flags().Changed(name) }

	if c.Root != "" && unset("root") {
		opts.Root = c.Root
	}
	if c.Table != "" && unset("table") {
		opts.Table = c.Table
	}
	if c.Init != "" && unset("init") {
		opts.Init = c.Init
	}
	if c.Database != "" && unset("db") {
		opts.Database = c.Database
	}
	if c.Seed != nil && unset("seed") {
		opts.Seed = *c.Seed
	}
	if c.StartTime != nil && unset("start-time") {
		opts.StartTime = *c.StartTime
	}
	if c.MaxSteps != nil && unset("max-steps") {
		opts.MaxSteps = *c.MaxSteps
	}
	if c.MaxEvents != nil && unset("max-events") {
		opts.MaxEvents = *c.MaxEvents
	}
}
