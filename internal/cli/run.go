package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/service"
	"github.com/perbu/artifacts/internal/web"
)

// errAllStopped ends the web server once every runner has finished
var errAllStopped = errors.New("all runners stopped")

// Run executes the run command
func (c *RunCmd) Run(ctx *Context) error {
	token, err := ctx.token()
	if err != nil {
		return err
	}

	roster := ctx.Config.Roster
	if len(c.Characters) > 0 {
		if c.Persona == "" {
			return fmt.Errorf("--persona is required when naming characters")
		}
		roster = config.Roster{c.Persona: c.Characters}
	}

	if _, err := ctx.Services.Journal.Prune(time.Now()); err != nil {
		slog.Warn("failed to prune journal", "error", err)
	}

	bot, err := service.NewBot(ctx.DB, ctx.Config, token, roster, prometheus.DefaultRegisterer, slog.Default())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx.Ctx)
	if c.Web && ctx.Config.Web.Enabled {
		server, err := web.NewServer(ctx.DB, ctx.Config.WebAddr(),
			web.WithRunners(bot.Scheduler),
			web.WithPersonas(bot.Supervisor.Persona),
			web.WithGatherer(prometheus.DefaultGatherer),
			web.WithAdminToken(ctx.Config.GetAdminToken()),
		)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		if !ctx.Quiet {
			fmt.Printf("Status pages at %s\n", server.Address())
		}
		g.Go(func() error { return server.Start(gctx) })
	}

	g.Go(func() error {
		err := bot.Run(gctx)
		if err != nil {
			return err
		}
		// Every runner ended; take the web server down too
		if gctx.Err() == nil && !ctx.Quiet {
			fmt.Println("All runners finished")
		}
		return errAllStopped
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errAllStopped) {
		return err
	}
	return nil
}
