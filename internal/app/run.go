package app

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/blueprint"
	"github.com/vk/loomgo/internal/ctxlog"
	"github.com/vk/loomgo/internal/diskstore"
	"github.com/vk/loomgo/internal/driver"
	"github.com/vk/loomgo/internal/driver/pool"
	"github.com/vk/loomgo/internal/driver/sequential"
	"github.com/vk/loomgo/internal/driver/socketio"
	"github.com/vk/loomgo/internal/memstore"
	"github.com/vk/loomgo/internal/schedule"
	"github.com/vk/loomgo/internal/store"
)

// Run builds the blueprint for the configured root call and executes it,
// returning the root call's value.
func (a *App) Run(ctx context.Context) (cty.Value, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	name, args, err := parseRootCall(a.config.RootCall)
	if err != nil {
		return cty.NilVal, err
	}

	a.logger.Debug("Building blueprint.", "root", name)
	bp, err := blueprint.Build(ctx, a.registry, name, args)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to build blueprint: %w", err)
	}
	a.logger.Info("Blueprint built.", "root", bp.Root().String(), "calls", bp.Len())

	st, err := a.newStore()
	if err != nil {
		return cty.NilVal, err
	}
	drv, err := a.newDriver(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	defer drv.Close()

	a.logger.Info("Starting execution.", "driver", a.driverName(), "store", a.storeName())
	value, err := schedule.Run(ctx, bp, st, drv)
	if err != nil {
		return cty.NilVal, fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")

	a.logger.Debug("App.Run method finished.")
	return value, nil
}

func (a *App) storeName() string {
	if a.config.Store == "" {
		return "memory"
	}
	return a.config.Store
}

func (a *App) driverName() string {
	if a.config.Driver == "" {
		return "pool"
	}
	return a.config.Driver
}

// newStore constructs the configured result store.
func (a *App) newStore() (store.Store, error) {
	switch a.storeName() {
	case "memory":
		return memstore.New(), nil
	case "disk":
		return diskstore.New(a.config.StorePath)
	}
	return nil, fmt.Errorf("unknown store %q", a.config.Store)
}

// newDriver constructs the configured execution driver.
func (a *App) newDriver(ctx context.Context) (driver.Driver, error) {
	switch a.driverName() {
	case "sequential":
		return sequential.New(a.registry), nil
	case "pool":
		workers := a.config.WorkerCount
		if workers == 0 {
			workers = pool.DefaultWorkers
		}
		return pool.New(ctx, a.registry, workers), nil
	case "socketio":
		return socketio.New(ctx, socketio.Config{URL: a.config.SocketURL})
	}
	return nil, fmt.Errorf("unknown driver %q", a.config.Driver)
}
