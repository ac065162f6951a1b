// Command fintrack records transactions and reports monthly aggregates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const usage = `Usage: fintrack <command> [flags]

Commands:
  add         record a transaction
  delete      delete a transaction by id
  show        print one transaction
  categories  list the categories in use
  summary     income, expenses and balance of a month
  breakdown   expenses of a month by category
  history     most recent transactions
  trend       per-month summaries for the last N months
  export      write the full history to a CSV file
  serve       run the JSON API

Run "fintrack <command> -h" for the flags of a command.
`

// errUsage marks bad invocations; they exit with status 2.
var errUsage = errors.New("usage error")

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"add":        runAdd,
	"delete":     runDelete,
	"show":       runShow,
	"categories": runCategories,
	"summary":    runSummary,
	"breakdown":  runBreakdown,
	"history":    runHistory,
	"trend":      runTrend,
	"export":     runExport,
	"serve":      runServe,
}

// app holds everything a subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *backend.Result
	engine  *analytics.Engine
	service *services.TransactionService
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := cli.SetupLogger(cfg, stderr)

	res, err := backend.NewFactory(logger.Logger).Create(ctx, backendConfig(cfg))
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		return 1
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Failed to close ledger", log.FieldError, err)
		}
	}()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   res,
		engine:  analytics.NewEngine(res.Store, analytics.WithLogger(logger)),
		service: services.NewTransactionService(res.Store, res.Publisher, services.WithLogger(logger)),
		stdout:  stdout,
		stderr:  stderr,
	}

	if err := cmd(ctx, a, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func backendConfig(cfg *config.Config) backend.Config {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		// Validate already rejected unknown backends.
		return backend.Config{Type: backend.BackendType(cfg.DataBackend)}
	}
	return bc
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses args and rejects leftovers.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}
