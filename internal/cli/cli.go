package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/loomgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("loom", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Loom - a declarative function-graph runner with memoized execution.

Usage:
  loom [options] WORKFLOW_PATH 'root_call(args...)'

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl workflow file or a directory containing them.
  root_call
    The call to run, written as a call expression, e.g. 'fibonacci_number(10)'.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	callFlag := flagSet.String("call", "", "Root call expression to run.")
	driverFlag := flagSet.String("driver", "pool", "Execution driver. Options: 'sequential', 'pool', or 'socketio'.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the pool driver.")
	storeFlag := flagSet.String("store", "memory", "Result store. Options: 'memory' or 'disk'.")
	storePathFlag := flagSet.String("store-path", ".loom-store", "Directory for the disk store.")
	socketURLFlag := flagSet.String("socket-url", "", "Broker URL for the socketio driver.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *workflowFlag
	call := *callFlag
	positional := flagSet.Args()
	if path == "" && len(positional) > 0 {
		path = positional[0]
		positional = positional[1:]
	}
	if call == "" && len(positional) > 0 {
		call = positional[0]
	}

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if call == "" {
		return nil, false, &ExitError{Code: 2, Message: "no root call given: pass one as the second argument or with -call"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		WorkflowPath: path,
		RootCall:     call,
		Driver:       strings.ToLower(*driverFlag),
		WorkerCount:  *workersFlag,
		Store:        strings.ToLower(*storeFlag),
		StorePath:    *storePathFlag,
		SocketURL:    *socketURLFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
