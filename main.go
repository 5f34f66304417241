package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/service"
	"github.com/perbu/artifacts/internal/telemetry"
	"github.com/perbu/artifacts/internal/web"
)

//go:embed .version
var version string

// setupLogger configures the global slog logger based on debug setting
func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	// Parse command-line flags
	var (
		port       = flag.Int("port", 0, "Port for the status server (overrides config)")
		host       = flag.String("host", "", "Host for the status server (overrides config)")
		configPath = flag.String("config", "", "Config file path")
		dataDir    = flag.String("data-dir", "", "Data directory")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(strings.TrimSpace(version))
		return nil
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override data dir if specified
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *host != "" {
		cfg.Web.Host = *host
	}
	if *port != 0 {
		cfg.Web.Port = *port
	}

	// Override debug if specified via CLI flag
	if *debug {
		cfg.Debug = true
	}

	// Set up slog based on debug setting
	setupLogger(cfg.Debug)
	slog.Info("starting artifacts", "version", strings.TrimSpace(version))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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

	services := service.New(database, cfg)
	if _, err := services.Journal.Prune(time.Now()); err != nil {
		slog.Warn("failed to prune journal", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	// The token is read once; runners never look at the environment again
	bot, err := service.NewBot(database, cfg, cfg.GetToken(), cfg.Roster, prometheus.DefaultRegisterer, slog.Default())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Web.Enabled {
		server, err := web.NewServer(database, cfg.WebAddr(),
			web.WithRunners(bot.Scheduler),
			web.WithPersonas(bot.Supervisor.Persona),
			web.WithGatherer(prometheus.DefaultGatherer),
			web.WithAdminToken(cfg.GetAdminToken()),
		)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		slog.Info("Starting web server", "address", server.Address())
		g.Go(func() error { return server.Start(gctx) })
	}

	g.Go(func() error {
		if err := bot.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			slog.Info("all runners finished")
		}
		return errFinished
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errFinished) {
		return err
	}
	slog.Info("stopped")
	return nil
}

var errFinished = errors.New("all runners finished")
