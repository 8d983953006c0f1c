// Package config holds the daemon's runtime parameters and the
// startup validation that runs once before the first cycle.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Startup validation error kinds. Each precondition violation maps to
// exactly one of these; callers match with errors.Is.
var (
	ErrSourceNotFound  = errors.New("source path does not exist")
	ErrNotADirectory   = errors.New("source and replica paths must be directories")
	ErrInvalidInterval = errors.New("synchronization interval must be greater than zero")
)

// Config represents the complete treesyncd configuration
type Config struct {
	Source   string `yaml:"source"`
	Replica  string `yaml:"replica"`
	Interval int    `yaml:"interval"` // seconds between cycles
	LogFile  string `yaml:"log_file"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()

	return &cfg, nil
}

// FromArgs builds a Config from the four positional command-line
// arguments: source path, replica path, interval in seconds, log file.
func FromArgs(args []string) (*Config, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("expected 4 arguments (SOURCE REPLICA INTERVAL LOGFILE), got %d", len(args))
	}

	interval, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, fmt.Errorf("interval must be an integer number of seconds: %q", args[2])
	}

	return &Config{
		Source:   args[0],
		Replica:  args[1],
		Interval: interval,
		LogFile:  args[3],
	}, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Source = os.ExpandEnv(c.Source)
	c.Replica = os.ExpandEnv(c.Replica)
	c.LogFile = os.ExpandEnv(c.LogFile)
}

// Validate checks the startup preconditions, creating the replica root
// if it does not exist yet. A violation is reported as one of the
// package error kinds; the sync loop must not start after a failure.
func (c *Config) Validate() error {
	srcInfo, err := os.Stat(c.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, c.Source)
		}
		return fmt.Errorf("failed to stat source path %s: %w", c.Source, err)
	}

	if _, err := os.Stat(c.Replica); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Replica, 0o755); err != nil {
			return fmt.Errorf("failed to create replica path %s: %w", c.Replica, err)
		}
	}

	replicaInfo, err := os.Stat(c.Replica)
	if err != nil {
		return fmt.Errorf("failed to stat replica path %s: %w", c.Replica, err)
	}

	if !srcInfo.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, c.Source)
	}
	if !replicaInfo.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, c.Replica)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, c.Interval)
	}

	if c.LogFile == "" {
		return fmt.Errorf("log file path is required")
	}

	return nil
}
