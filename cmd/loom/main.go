package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/loomgo/internal/app"
	"github.com/vk/loomgo/internal/cli"
)

// main is the entrypoint for the loom application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. The run result is printed to outW as JSON; logs go to errW.
func run(outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	loomApp, err := app.NewApp(errW, appConfig)
	if err != nil {
		return err
	}

	value, err := loomApp.Run(context.Background())
	if err != nil {
		return err
	}

	rendered, err := ctyjson.Marshal(value, value.Type())
	if err != nil {
		return fmt.Errorf("cannot render result: %w", err)
	}
	fmt.Fprintln(outW, string(rendered))
	return nil
}
