package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/exitcodes"
	"github.com/snakada/ecbridge/internal/logging"
	"github.com/snakada/ecbridge/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	// A .env alongside the binary supplies the access tokens the config
	// references through ${VAR} expansion. Missing file is fine.
	godotenv.Load()

	app := &cli.App{
		Name:    "ecbridge",
		Usage:   "Migrate products, customers, and orders between e-commerce platforms",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log every write instead of sending it",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Only migrate records whose name contains this substring",
			},
			&cli.BoolFlag{
				Name:  "include-zero-orders",
				Usage: "Also migrate orders with a zero total",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Value: "info",
				Usage: "Log verbosity level (debug, info, warn, error)",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String("verbosity"))
			if err != nil {
				return err
			}
			logging.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the full migration: products, then customers, then orders",
				Action: func(c *cli.Context) error {
					return runEntities(c)
				},
			},
			{
				Name:  "extract",
				Usage: "Fetch the configured sales date range from the source into the data directory",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					coord, err := orchestrator.New(cfg)
					if err != nil {
						return err
					}
					defer coord.Close()
					return coord.Extract(signalContext())
				},
			},
			{
				Name:  "products",
				Usage: "Migrate products only",
				Action: func(c *cli.Context) error {
					return runEntities(c, orchestrator.EntityProducts)
				},
			},
			{
				Name:  "customers",
				Usage: "Migrate customers only",
				Action: func(c *cli.Context) error {
					return runEntities(c, orchestrator.EntityCustomers)
				},
			},
			{
				Name:  "orders",
				Usage: "Migrate orders only (requires prior product and customer passes)",
				Action: func(c *cli.Context) error {
					return runEntities(c, orchestrator.EntityOrders)
				},
			},
			{
				Name:  "status",
				Usage: "Show the last run and the ID map totals",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return orchestrator.ShowStatus(cfg)
				},
			},
			{
				Name:  "history",
				Usage: "List past migration runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of runs to list",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return orchestrator.ShowHistory(cfg, c.Int("limit"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.CloseFile()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitcodes.FromError(err))
	}
	logging.CloseFile()
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, exitcodes.NewExitError(
			fmt.Errorf("loading config: %w", err), exitcodes.ConfigError)
	}

	if c.Bool("dry-run") {
		cfg.Migration.DryRun = true
	}
	if c.IsSet("filter") {
		cfg.Migration.NameFilter = c.String("filter")
	}
	if c.Bool("include-zero-orders") {
		cfg.Migration.IncludeZeroOrders = true
	}

	// The default log file lives in the data dir, which may not exist yet
	// on a first run.
	if err := os.MkdirAll(cfg.Migration.DataDir, 0755); err != nil {
		logging.Warn("Data dir unavailable: %v", err)
	}
	if err := logging.SetFile(cfg.Logging.File); err != nil {
		logging.Warn("Log file unavailable: %v", err)
	}
	return cfg, nil
}

func runEntities(c *cli.Context, entities ...string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	coord, err := orchestrator.New(cfg)
	if err != nil {
		return err
	}
	defer coord.Close()

	return coord.Run(signalContext(), entities...)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// interrupted run still leaves the ID map consistent.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted. Finishing the current record...")
		cancel()
	}()
	return ctx
}
