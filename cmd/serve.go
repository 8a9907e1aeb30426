package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jarvis-assistant/jarvis/internal/config"
	"github.com/jarvis-assistant/jarvis/internal/container"
	"github.com/jarvis-assistant/jarvis/internal/cron"
	"github.com/jarvis-assistant/jarvis/internal/observability"
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jarvis HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	fmt.Printf("%s Starting jarvis on port %d...\n", logo, cfg.Server.Port)

	cronSvc := cron.NewService()
	if err := registerMaintenance(cronSvc, cfg, c); err != nil {
		return err
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Server().Start(gctx) })
	g.Go(func() error { return cronSvc.Start(gctx) })

	fmt.Printf("%s Service running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

// registerMaintenance wires the background jobs: conversation TTL sweeps,
// rate-limiter pruning, and the morning briefing prewarm.
func registerMaintenance(cronSvc *cron.Service, cfg *config.Config, c *container.Container) error {
	sweepEvery := time.Duration(cfg.Conversation.SweepIntervalMin) * time.Minute
	if err := cronSvc.Every(sweepEvery, "conversation-sweep", func(ctx context.Context) {
		c.Store().EvictExpired()
		observability.SetActiveConversations(c.Store().ActiveConversations())
	}); err != nil {
		return err
	}

	if err := cronSvc.Every(time.Hour, "ratelimit-prune", func(ctx context.Context) {
		c.Server().Limiter().Prune(time.Hour)
	}); err != nil {
		return err
	}

	// Warm the briefing cache shortly before the user typically asks.
	return cronSvc.Daily(7, 0, "briefing-prewarm", func(ctx context.Context) {
		status := c.Aggregator().Status(ctx)
		if !status.Calendar && !status.Gmail && !status.Bills {
			return
		}
		c.Briefing().Prewarm(ctx, schema.Identity{UserID: "default", Channel: schema.ChannelCLI})
	})
}
