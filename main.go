package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hunterjsb/mtbot/internal/admin"
	"github.com/hunterjsb/mtbot/internal/alert"
	"github.com/hunterjsb/mtbot/internal/config"
	"github.com/hunterjsb/mtbot/internal/discord"
	"github.com/hunterjsb/mtbot/internal/i18n"
	"github.com/hunterjsb/mtbot/internal/motortown"
	"github.com/hunterjsb/mtbot/internal/poller"
	"github.com/hunterjsb/mtbot/internal/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		slog.Warn("Continuing with environment variables from system", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.SlogLevel())

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	catalog, err := i18n.Load(cfg.Language)
	if err != nil {
		slog.Warn("Unknown language, using English", "language", cfg.Language, "available", i18n.Languages(), "error", err)
		catalog = i18n.MustLoad(i18n.DefaultLanguage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := motortown.NewClient(cfg.APIBaseURL, cfg.APIPassword, cfg.APITimeout)

	switch cfg.Mode {
	case config.ModeStatus:
		err = runStatus(ctx, client, catalog, os.Stdout)
	default:
		err = runDiscordBot(ctx, cfg, client, catalog)
	}
	if err != nil {
		slog.Error("Exiting", "mode", cfg.Mode, "error", err)
		os.Exit(1)
	}
}

func runDiscordBot(ctx context.Context, cfg *config.Config, client *motortown.Client, catalog *i18n.Catalog) error {
	slog.Info("Starting Discord bot mode", "api", cfg.APIBaseURL, "language", catalog.Language())

	repo, err := storage.NewRepository(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	notifier, err := alert.NewNotifier(cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("invalid WEBHOOK_URL: %w", err)
	}
	if notifier == nil {
		slog.Info("WEBHOOK_URL not set, server alerts disabled")
	}

	bot, err := discord.NewDiscordBot(cfg, catalog)
	if err != nil {
		return err
	}

	bot.Dispatcher = admin.NewDispatcher(client, cfg.AdminRoleID,
		admin.WithRetry(motortown.RetryPolicy{
			Attempts:        cfg.CommandRetries + 1,
			InitialInterval: motortown.DefaultPollRetry.InitialInterval,
			MaxInterval:     motortown.DefaultPollRetry.MaxInterval,
		}),
		admin.WithAuthAlerter(notifier),
	)
	bot.Refresher = poller.New(client, bot.Surface(), poller.NewStatusRenderer(catalog), poller.Options{
		Interval: cfg.RefreshInterval,
		Retry: motortown.RetryPolicy{
			Attempts:        cfg.PollRetries,
			InitialInterval: motortown.DefaultPollRetry.InitialInterval,
			MaxInterval:     motortown.DefaultPollRetry.MaxInterval,
		},
		Monitor: poller.NewMonitor(notifier),
		Store:   repo,
	})

	if err := bot.Start(ctx); err != nil {
		return err
	}

	slog.Info("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()

	slog.Info("Shutting down bot")
	return bot.Stop()
}

// runStatus prints one server snapshot and exits.
func runStatus(ctx context.Context, client *motortown.Client, catalog *i18n.Catalog, w io.Writer) error {
	var (
		players []motortown.PlayerRecord
		bans    []motortown.BanRecord
		count   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		players, err = client.GetStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		count, err = client.PlayerCount(gctx)
		return err
	})
	g.Go(func() (err error) {
		bans, err = client.ListBanned(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(w, "%s: %s\n", catalog.T("server_status"), catalog.T("server_offline"))
		return err
	}

	snap := poller.Snapshot{Players: players, TakenAt: time.Now()}
	fmt.Fprintln(w, catalog.T("status_title"))
	fmt.Fprintf(w, "%s: %s\n", catalog.T("server_status"), catalog.T("server_online"))
	fmt.Fprintf(w, "%s: %d\n", catalog.T("players_online"), count)
	if ping, ok := snap.AveragePing(); ok {
		fmt.Fprintf(w, "%s: %d ms\n", catalog.T("average_ping"), ping)
	}
	fmt.Fprintf(w, "%s:\n", catalog.T("player_names"))
	if len(players) == 0 {
		fmt.Fprintf(w, "  %s\n", catalog.T("no_players_online"))
	}
	for _, p := range players {
		fmt.Fprintf(w, "  %s (%s)\n", p.Name, p.ID)
	}
	fmt.Fprintf(w, "%s: %d\n", catalog.T("banned_players"), len(bans))
	return nil
}

func setupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
