package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"health_notification_service/internal/app"
	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/healthlog"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"
	"health_notification_service/internal/infra/config"
	idb "health_notification_service/internal/infra/database"
	logdelivery "health_notification_service/internal/infra/delivery"
	"health_notification_service/internal/infra/fcm"
	"health_notification_service/internal/infra/httpapi"
	"health_notification_service/internal/infra/lock"
	"health_notification_service/internal/infra/logger"
	"health_notification_service/internal/infra/memory"
	"health_notification_service/internal/infra/metrics"
	"health_notification_service/internal/infra/scheduler"
	"health_notification_service/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	log := logger.New(cfg)
	mainLogger := logger.Component(log, "main")
	mainLogger.WithFields(logrus.Fields{
		"environment":      cfg.Environment,
		"store_driver":     cfg.StoreDriver,
		"delivery_channel": cfg.DeliveryChannel,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores
	var (
		states notification.Repository
		users  user.Repository
		logs   healthlog.Store
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		states, users, logs = memory.NewStateStore(), memory.NewUserStore(), memory.NewHealthLogStore()
		mainLogger.Warn("Using in-memory stores; state is lost on restart")
	default:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if err := idb.EnsureSchema(ctx, db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database schema")
		}
		mainLogger.Info("Database connection established successfully.")
		states = idb.NewPostgresNotificationRepository(db)
		users = idb.NewPostgresUserRepository(db)
		logs = idb.NewPostgresHealthLogRepository(db)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer := metrics.New(registry)

	// Delivery gateway
	var (
		gateway delivery.Gateway
		bot     *telebot.Bot
	)
	switch cfg.DeliveryChannel {
	case config.ChannelFCM:
		opts, err := fcm.CredentialOptions(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not load Firebase credentials")
		}
		gateway, err = fcm.NewGateway(ctx, cfg.FCMProjectID, logger.Component(log, "fcm"), opts...)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create FCM gateway")
		}
	case config.ChannelTelegram:
		botLogger := logger.Component(log, "telebot")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		gateway = telegram.NewGateway(bot)
	default:
		gateway = logdelivery.NewLogGateway(logger.Component(log, "delivery"))
	}

	// Job lock
	var locker app.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		locker = lock.NewRedisLocker(rdb, logger.Component(log, "lock"))
		mainLogger.Info("Distributed job lock enabled")
	}

	// Services
	clk := clock.New()
	seeder := app.NewSeedService(users, states, clk, observer, logger.Component(log, "seed"))
	engine := app.NewCycleEngine(states, users, gateway, clk, app.CycleConfig{
		ReminderInterval:   cfg.ReminderInterval,
		DeliveryTimeout:    cfg.DeliveryTimeout,
		Concurrency:        cfg.CycleConcurrency,
		HydrationMLPerSlot: cfg.HydrationMLPerSlot,
	}, observer, logger.Component(log, "cycle"))
	actions := app.NewActionService(states, users, logs, clk, app.ActionConfig{
		SnoozeShort:        cfg.SnoozeShort,
		SnoozeLong:         cfg.SnoozeLong,
		HydrationMLPerSlot: cfg.HydrationMLPerSlot,
	}, observer, logger.Component(log, "action"))
	preferences := app.NewPreferenceService(users, seeder, clk, logger.Component(log, "preferences"))
	status := app.NewStatusService(states, users, gateway, clk, cfg.DeliveryTimeout, cfg.HydrationMLPerSlot, observer, logger.Component(log, "status"))
	jobs := app.NewJobs(seeder, engine, locker, cfg.JobLockTTL, logger.Component(log, "jobs"))

	// Scheduler
	notifScheduler := scheduler.NewNotificationScheduler(
		jobs,
		logger.Component(log, "scheduler"),
		cfg.CronSpecSeed,
		cfg.CronSpecCycle(),
		cfg.JobLockTTL,
	)
	if cfg.SeedOnStartup {
		notifScheduler.RunSeed()
	}
	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	// Telegram handlers
	if bot != nil {
		tgLogger := logger.Component(log, "telegram")
		telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, preferences, tgLogger)
		telegram.RegisterAdminHandlers(ctx, bot, jobs, status, cfg.AdminTelegramID, tgLogger)
		telegram.NewQuickActions(actions, users, tgLogger).Register(ctx, bot)
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	// HTTP API
	validator, err := httpapi.NewValidator()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not build request validator")
	}
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewServer(httpapi.Deps{
			Actions:        actions,
			Preferences:    preferences,
			Status:         status,
			Jobs:           jobs,
			Validator:      validator,
			Metrics:        observer,
			Gatherer:       registry,
			Logger:         logger.Component(log, "http"),
			AdminAPIKey:    cfg.AdminAPIKey,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("HTTP server stopped")
			stop()
		}
	}()

	mainLogger.Info("Application setup complete.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	if bot != nil {
		bot.Stop()
	}
	notifScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
