package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // hcl workflow files
	RootCall     string // call expression, e.g. fibonacci_number(10)

	Driver      string // sequential | pool | socketio
	WorkerCount int
	Store       string // memory | disk
	StorePath   string
	SocketURL   string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.RootCall == "" {
		return nil, errors.New("RootCall is a required configuration field and cannot be empty")
	}

	switch cfg.Driver {
	case "", "sequential", "pool", "socketio":
	default:
		return nil, fmt.Errorf("unknown driver %q: must be 'sequential', 'pool', or 'socketio'", cfg.Driver)
	}
	if cfg.Driver == "socketio" && cfg.SocketURL == "" {
		return nil, errors.New("the socketio driver requires a broker URL")
	}

	switch cfg.Store {
	case "", "memory", "disk":
	default:
		return nil, fmt.Errorf("unknown store %q: must be 'memory' or 'disk'", cfg.Store)
	}
	if cfg.Store == "disk" && cfg.StorePath == "" {
		return nil, errors.New("the disk store requires a directory path")
	}

	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}

	return &cfg, nil
}
