package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/rickgao/topicrelay/internal/config"
	"github.com/rickgao/topicrelay/internal/health"
	"github.com/rickgao/topicrelay/internal/logging"
	"github.com/rickgao/topicrelay/internal/poller"
	"github.com/rickgao/topicrelay/internal/relay"
	"github.com/rickgao/topicrelay/internal/router"
	"github.com/rickgao/topicrelay/internal/routes"
	"github.com/rickgao/topicrelay/internal/telegram"
	"github.com/rickgao/topicrelay/internal/version"
)

// drainTimeout bounds how long queued events may take to flush on shutdown.
const drainTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay",
	Long: `Start the relay: load the route table, authorize the bot, then long-poll
for updates until SIGINT or SIGTERM.

A corrupt route file aborts startup and is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidate(configPath, envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging)
	if err := tgbotapi.SetLogger(logging.BotLogger(logger)); err != nil {
		return fmt.Errorf("set bot logger: %w", err)
	}

	logger.Info("starting topicrelay",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"instance_id", cfg.Instance.ID,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	table := routes.NewTable(store, logger.With("component", "routes"))
	if err := table.Load(ctx); err != nil {
		return err
	}

	client, err := telegram.New(cfg.Telegram.Token,
		telegram.WithEndpoint(cfg.Telegram.APIEndpoint),
		telegram.WithTimeout(cfg.Telegram.RequestTimeout),
		telegram.WithLogger(logger.With("component", "telegram")),
		telegram.WithDebug(cfg.Telegram.Debug),
	)
	if err != nil {
		return err
	}

	updates := poller.New(poller.Config{
		Timeout:    cfg.Telegram.PollTimeout,
		BaseWait:   cfg.Telegram.RetryBaseDelay,
		MaxWait:    cfg.Telegram.RetryMaxDelay,
		BufferSize: cfg.Relay.BufferSize,
	}, client, logger.With("component", "poller"))

	rtr := router.New(router.Config{
		AdminGroupID:    cfg.Telegram.AdminGroupID,
		Shards:          cfg.Relay.Workers,
		BufferSize:      cfg.Relay.BufferSize,
		ForwardCommands: cfg.Relay.ForwardCommands,
	}, updates.Updates(), logger.With("component", "router"))

	rel := relay.New(relay.Config{
		AdminGroupID:      cfg.Telegram.AdminGroupID,
		UnsupportedNotice: cfg.Relay.UnsupportedNotice,
	}, client, table, logger.With("component", "relay"))

	var healthServer *health.Server
	if !cfg.Health.Disabled {
		healthServer = health.NewServer(cfg.Health.Port, health.Deps{
			Routes: table,
			Components: map[string]func() any{
				"poller": func() any { return updates.Stats() },
				"router": func() any { return rtr.Stats() },
				"relay":  func() any { return rel.Stats() },
			},
		}, logger)
		healthServer.Start()
	}

	// Workers outlive ctx so queued events can drain after a signal.
	if err := rel.Start(context.Background(), rtr.Shards()); err != nil {
		return err
	}
	if err := rtr.Start(ctx); err != nil {
		return err
	}
	if err := updates.Start(ctx); err != nil {
		return err
	}

	logger.Info("topicrelay running",
		"instance_id", cfg.Instance.ID,
		"admin_group_id", cfg.Telegram.AdminGroupID,
		"bot", client.Self().UserName,
		"routes", table.Len(),
		"backend", cfg.Routes.Backend,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer shutdownCancel()

	if err := updates.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop", "error", err)
	}
	if err := rtr.Stop(shutdownCtx); err != nil {
		logger.Warn("router stop", "error", err)
	}
	if err := rel.Stop(shutdownCtx); err != nil {
		logger.Warn("relay stop", "error", err)
	}
	table.Close()

	if healthServer != nil {
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown", "error", err)
		}
	}

	logger.Info("topicrelay stopped", "stats", rel.Stats())
	return nil
}
