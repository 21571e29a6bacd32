package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/hclspec"
	"github.com/vk/loomgo/internal/registry"
)

// HandlerModule pairs a declared function name with the Go handler that
// implements its body. Workflow files declare signatures and dependency
// blocks; modules supply the executable part.
type HandlerModule struct {
	Function string
	Handler  registry.Handler
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// NewApp constructs the application: logger first, then a registry
// populated from the workflow path and bound to handlers. Core modules
// bind only to functions the workflows actually declare; extra modules
// are bound unconditionally and fail loudly if their function is missing.
func NewApp(outW io.Writer, cfg *Config, extra ...HandlerModule) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if err := hclspec.LoadPath(ctx, reg, cfg.WorkflowPath); err != nil {
		return nil, fmt.Errorf("failed to load workflow definitions: %w", err)
	}
	logger.Debug("Workflow definitions loaded.", "functions", len(reg.Names()))

	for _, mod := range coreModules {
		if _, declared := reg.Function(mod.Function); !declared {
			continue
		}
		if err := reg.BindHandler(mod.Function, mod.Handler); err != nil {
			return nil, err
		}
	}
	for _, mod := range extra {
		if err := reg.BindHandler(mod.Function, mod.Handler); err != nil {
			return nil, err
		}
	}
	logger.Debug("Handlers bound.")

	if err := reg.Validate(ctx); err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
