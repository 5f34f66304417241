package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/perbu/artifacts/internal/cli"
	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/service"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	var c cli.CLI
	kctx := kong.Parse(&c,
		kong.Name("artifacts"),
		kong.Description("Artifacts MMO character automation"),
		kong.UsageOnError(),
		kong.Vars{"version": "artifacts version " + version},
	)

	level := slog.LevelWarn
	switch {
	case c.Debug:
		level = slog.LevelDebug
	case c.Verbose:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Load configuration
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override data dir if specified
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}

	// Require data directory to be specified
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory must be specified via --data-dir flag or config file")
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	// Open database
	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return kctx.Run(&cli.Context{
		Ctx:      ctx,
		DB:       database,
		Config:   cfg,
		Services: service.New(database, cfg),
		Verbose:  c.Verbose,
		Quiet:    c.Quiet,
	})
}
