package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/perbu/artifacts/internal/api"
	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/engine"
	"github.com/perbu/artifacts/internal/journal"
	"github.com/perbu/artifacts/internal/metrics"
	"github.com/perbu/artifacts/internal/supervisor"
)

// Bot is the wired runtime: one supervised runner per rostered character,
// observed by the journal and the metrics.
type Bot struct {
	Client     *api.Client
	Scheduler  *engine.Scheduler
	Supervisor *supervisor.Supervisor
	Recorder   *journal.Recorder
	Metrics    *metrics.Metrics
}

// NewBot builds the runtime for roster. The token is read once by the caller
// and handed to the API client. reg may be nil for the default registerer.
func NewBot(database *db.DB, cfg *config.Config, token string, roster config.Roster, reg prometheus.Registerer, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	assignments, err := supervisor.FromRoster(roster)
	if err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	client := api.NewClient(cfg.API.BaseURL, token,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)

	sup := supervisor.New(assignments, supervisor.Config{
		MaxRestarts:    cfg.Supervisor.MaxRestarts,
		InitialBackoff: cfg.Supervisor.InitialBackoff,
		MaxBackoff:     cfg.Supervisor.MaxBackoff,
	}, supervisor.WithLogger(logger))

	m := metrics.MustNewMetrics(reg)
	recorder := journal.New(database, func(character string) string {
		persona, _ := sup.Persona(character)
		return persona
	}, logger)

	opts := []engine.SchedulerOption{
		engine.WithDriver(sup.Drive),
		engine.WithRunnerDefaults(
			engine.WithLogger(logger),
			engine.WithObserver(m),
			engine.WithObserver(recorder),
		),
	}
	if cfg.Supervisor.FailFast {
		opts = append(opts, engine.WithFailFast())
	}
	scheduler := engine.NewScheduler(client, client, opts...)

	for _, name := range sup.Characters() {
		if _, err := scheduler.Register(name); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	return &Bot{
		Client:     client,
		Scheduler:  scheduler,
		Supervisor: sup,
		Recorder:   recorder,
		Metrics:    m,
	}, nil
}

// Run drives every runner until ctx is cancelled or all of them have ended.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("starting runners", "characters", b.Supervisor.Characters())
	return b.Scheduler.RunAll(ctx)
}
