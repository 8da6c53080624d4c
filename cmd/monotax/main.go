/*
main.go - monotax command-line entry point

PURPOSE:
  Tracks income of a single-tax entrepreneur: imports bank statements,
  prints quarterly tax reports, records tax payments and reconciles them
  against incomes oldest first.

USAGE:
  monotax [-config file] [-env file] [-v] <command> [options]

COMMANDS:
  init                   Write a default config.toml
  import FILE...         Import universalbank CSV statements
  incomes                List stored incomes
  report                 Quarterly report (text, csv or pdf)
  balance                Obligations, reconciled amounts and debt per income
  taxer                  Export incomes for Taxer
  pay AMOUNT             Record a tax payment and apply it
  payments               List payments
  apply ID               Apply a recorded payment
  unpay ID               Undo a payment's reconciliations
  tax list|create|add-rate
                         Manage income tax schedules
  serve                  Run the HTTP API

FILTERS:
  Commands working on incomes accept -year (number, current, any),
  -quarter (Q1..Q4, current, any) and -to-date.

CONFIGURATION:
  See package config. The config file defaults to
  <user config dir>/monotax/config.toml.

SEE ALSO:
  - commands.go: Command implementations
  - serve.go: HTTP server with graceful shutdown
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/warp/monotax/app"
	"github.com/warp/monotax/config"
	"github.com/warp/monotax/store/sqlite"
)

const version = "0.3.0"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "monotax: %v\n", err)
		os.Exit(1)
	}
}

// env carries what every command needs once the config is loaded.
type env struct {
	cfg   config.Config
	store *sqlite.Store
	svc   *app.Service
	log   *slog.Logger
	out   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("monotax", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file (default: user config dir)")
	envFile := global.String("env", ".env", "dotenv file with MONOTAX_* overrides")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stdout)
		return nil
	}
	cmd, cmdArgs := rest[0], rest[1:]

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	switch cmd {
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "version":
		fmt.Fprintf(stdout, "monotax v%s\n", version)
		return nil
	case "init":
		return cmdInit(cmdArgs, *configPath, stdout)
	}

	e, err := open(*configPath, *envFile, logger, stdout)
	if err != nil {
		return err
	}
	defer e.store.Close()

	switch cmd {
	case "import":
		return cmdImport(ctx, e, cmdArgs)
	case "incomes":
		return cmdIncomes(ctx, e, cmdArgs)
	case "report":
		return cmdReport(ctx, e, cmdArgs)
	case "balance":
		return cmdBalance(ctx, e, cmdArgs)
	case "taxer":
		return cmdTaxer(ctx, e, cmdArgs)
	case "pay":
		return cmdPay(ctx, e, cmdArgs)
	case "payments":
		return cmdPayments(ctx, e, cmdArgs)
	case "apply":
		return cmdApply(ctx, e, cmdArgs)
	case "unpay":
		return cmdUnpay(ctx, e, cmdArgs)
	case "tax":
		return cmdTax(ctx, e, cmdArgs)
	case "serve":
		return cmdServe(ctx, e, cmdArgs)
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", cmd)
}

func configFile(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.FileName), nil
}

func open(configPath, envFile string, logger *slog.Logger, stdout io.Writer) (*env, error) {
	path, err := configFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}
	rate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	logger.Debug("opened database", "path", cfg.Database.Path, "config", path)

	svc := app.New(store, app.Options{
		FlatRate: rate,
		Schedule: cfg.Tax.Schedule,
		Logger:   logger,
	})
	return &env{cfg: cfg, store: store, svc: svc, log: logger, out: stdout}, nil
}

func cmdInit(args []string, configPath string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := configFile(configPath)
	if err != nil {
		return err
	}
	written, err := config.Init(filepath.Dir(path), *force)
	if errors.Is(err, config.ErrExists) {
		return fmt.Errorf("%s already exists, use -force to overwrite", written)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", written)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `monotax v%s

Usage:
  monotax [-config file] [-env file] [-v] <command> [options]

Commands:
  init [-force]                          Write a default config.toml
  import [filters] FILE...               Import universalbank CSV statements
  incomes [filters]                      List stored incomes
  report [filters] [-format f] [-o file] Quarterly report, f is text, csv or pdf
  balance [filters]                      Obligations and debt per income
  taxer [filters] [-o file]              Export incomes for Taxer
  pay [-date YYYY-MM-DD] [-record] AMOUNT
                                         Record a tax payment and apply it
  payments                               List payments
  apply ID                               Apply a recorded payment
  unpay ID                               Undo a payment's reconciliations
  tax list
  tax create NAME YYYY-MM-DD=RATE...     Create a schedule
  tax add-rate NAME YYYY-MM-DD RATE      Append a rate change
  serve [-port p] [-apply-every d]       Run the HTTP API

Filters:
  -year N|current|any  -quarter Q1..Q4|current|any  -to-date

Environment:
  MONOTAX_DB, MONOTAX_PORT, MONOTAX_TAX_RATE
`, version)
}
