package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"homework_portal/internal/app"
	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
	"homework_portal/internal/infra/config"
	"homework_portal/internal/infra/httpapi"
	"homework_portal/internal/infra/logger"
	"homework_portal/internal/infra/metrics"
	"homework_portal/internal/infra/scheduler"
	"homework_portal/internal/infra/storage"
	"homework_portal/internal/infra/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Homework Portal starting...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.For("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"store_backend": cfg.StoreBackend,
		"timezone":      cfg.Timezone,
	}).Info("Configuration loaded")

	metrics.Register()

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.For("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Bot handler failed")
		},
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	transport := telegram.NewTelebotAdapter(bot)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, transport)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open homework store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			mainLogger.WithError(err).Warn("Failed to close homework store")
		}
	}()
	mainLogger.WithField("store_backend", cfg.StoreBackend).Info("Homework store ready")

	portal := app.NewPortalService(store, transport, cfg.HomeworkChatID, cfg.Subjects, cfg.Location, logger.For("portal_service"))
	admin := app.NewAdminService(store, transport, cfg.Subjects, cfg.Location, logger.For("admin_service"))
	export := app.NewExportService(store, cfg.Subjects, cfg.Location, logger.For("export_service"))
	digest := app.NewDigestService(store, transport, cfg.HomeworkChatID, cfg.Location, logger.For("digest_service"))

	digestScheduler := scheduler.NewDigestScheduler(digest, cfg.CronSpecDigest, cfg.Location, logrus.NewEntry(logger.Log))
	if err := digestScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start digest scheduler")
	}

	if cfg.AdminTelegramID != 0 {
		botLogger := logger.For("admin_bot")
		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAdminHandlers(bot, digest, cfg.AdminTelegramID, botLogger)
		go bot.Start()
		mainLogger.Info("Admin bot started")
	} else {
		mainLogger.Info("ADMIN_TELEGRAM_ID not set, admin bot disabled")
	}

	server := httpapi.NewServer(httpapi.Dependencies{
		Portal:        portal,
		Admin:         admin,
		Export:        export,
		AdminSecret:   cfg.AdminSecret,
		SecureCookies: cfg.Environment == "production",
		Logger:        logrus.NewEntry(logger.Log),
	})
	if cfg.AdminSecret == "" {
		mainLogger.Warn("ADMIN_SECRET not set, admin API disabled")
	}

	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			mainLogger.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if cfg.AdminTelegramID != 0 {
		bot.Stop()
	}
	digestScheduler.Stop()
	mainLogger.Info("Application shut down gracefully")
}

// openStore builds the configured backend wrapped with metrics and logging.
// The returned func releases the backend's connections.
func openStore(ctx context.Context, cfg *config.AppConfig, transport domainTelegram.Transport) (homework.Store, func() error, error) {
	noop := func() error { return nil }
	storeLogger := logger.For("store")

	switch cfg.StoreBackend {
	case storage.BackendTelegram:
		return storage.Instrumented(storage.NewChatStore(transport, cfg.StorageChatID), storage.BackendTelegram, storeLogger), noop, nil

	case storage.BackendBolt:
		bolt, err := storage.OpenBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrumented(bolt, storage.BackendBolt, storeLogger), bolt.Close, nil

	case storage.BackendRedis:
		client, err := storage.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrumented(storage.NewRedisStore(client), storage.BackendRedis, storeLogger), client.Close, nil

	case storage.BackendPostgres:
		db, err := storage.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg, err := storage.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.Instrumented(pg, storage.BackendPostgres, storeLogger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
