package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/guild-helper-bot-go/internal/handlers"
	"github.com/guild-helper-bot-go/internal/i18n"
	"github.com/guild-helper-bot-go/internal/middleware"
	"github.com/guild-helper-bot-go/internal/platform/discord"
	"github.com/guild-helper-bot-go/internal/platform/telegram"
	"github.com/guild-helper-bot-go/internal/services/completion"
	"github.com/guild-helper-bot-go/internal/services/cooldown"
	"github.com/guild-helper-bot-go/internal/services/tickets"
	"github.com/guild-helper-bot-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting guild helper bot...")

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	store := cooldown.NewStore()
	ticketService := tickets.NewService(cfg.Tickets.NamePrefix, log)
	metrics := middleware.NewMetrics()

	commandHandler, err := handlers.NewCommandHandler(
		cfg,
		cooldown.NewGate(store),
		completion.NewClient(&cfg.Completion, log),
		completion.NewExtractor(cfg.Completion.StructuredParse),
		ticketService,
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		localizer,
		metrics,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize command handler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Platforms.Discord.Enabled {
		bot, err := discord.New(cfg, commandHandler, ticketService, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Discord bot")
		}
		g.Go(func() error { return bot.Run(ctx) })
	}

	if cfg.Platforms.Telegram.Enabled {
		bot, err := telegram.New(cfg, commandHandler, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Telegram bot")
		}
		g.Go(func() error { return bot.Run(ctx) })
	}

	if cfg.Monitoring.Metrics.Enabled {
		log.WithFields(logrus.Fields{
			"port": cfg.Monitoring.Metrics.Port,
			"path": cfg.Monitoring.Metrics.Path,
		}).Info("Starting metrics server")
		g.Go(func() error {
			return middleware.StartMetricsServer(ctx, cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path)
		})
	}

	g.Go(func() error {
		startPeriodicTasks(ctx, store, ticketService, metrics)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Bot stopped with error")
		os.Exit(1)
	}

	log.Info("Bot stopped")
}

// startPeriodicTasks refreshes gauges that have no natural event to hang on
func startPeriodicTasks(ctx context.Context, store *cooldown.Store, ticketService *tickets.Service, metrics *middleware.Metrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetCooldownKeys(store.Len())
			metrics.SetOpenTickets(ticketService.OpenCount())
		}
	}
}
