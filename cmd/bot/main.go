package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"xcourses_bot/internal/api"
	"xcourses_bot/internal/app/service"
	"xcourses_bot/internal/app/worker"
	"xcourses_bot/internal/bot"
	"xcourses_bot/internal/bot/handler"
	"xcourses_bot/internal/domain/repository"
	"xcourses_bot/internal/platform/config"
	"xcourses_bot/internal/platform/database"
	"xcourses_bot/internal/platform/queue"
	"xcourses_bot/internal/platform/session"
	"xcourses_bot/internal/platform/telegram"
)

func main() {
	// 1. Configuration and logging
	config.Load()
	cfg := config.AppConfig

	log := newLogger(cfg.Debug)
	defer log.Sync()

	if cfg.BotToken == "" || cfg.AdminID == 0 {
		log.Fatal("BOT_TOKEN and ADMIN_ID must be set")
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// 2. Database
	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(rootCtx, db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database ready")

	// 3. Redis
	rdb, err := queue.ConnectRedis(rootCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis ready")

	// 4. Repositories
	userRepo := repository.NewPgUserRepository(db)
	courseRepo := repository.NewPgCourseRepository(db)
	moduleRepo := repository.NewPgModuleRepository(db)
	taskRepo := repository.NewPgTaskRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)

	// 5. Sessions
	var sessions session.Store
	if cfg.SessionBackend == "memory" {
		sessions = session.NewMemoryStore()
	} else {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	}

	// 6. Notification queue and services
	notifier := worker.NewQueue(rdb, cfg.NotifyQueueName)

	regService := service.NewRegistrationService(userRepo, log)
	catalogService := service.NewCatalogService(courseRepo, moduleRepo, taskRepo, userRepo, notifier, log)
	submissionService := service.NewSubmissionService(submissionRepo, notifier, log)
	reviewService := service.NewReviewService(submissionRepo, notifier, cfg.MaxScore, log)
	statsService := service.NewStatsService(courseRepo, userRepo)

	// 7. Gateway, handlers, dispatcher
	tg := telegram.NewClient(cfg.BotAPIBase, cfg.BotToken)
	userHandler := handler.NewUserHandler(regService, catalogService, submissionService, sessions, tg, cfg.AdminID, log)
	adminHandler := handler.NewAdminHandler(catalogService, reviewService, statsService, sessions, tg, cfg.AdminID, log)
	dispatcher := bot.NewDispatcher(tg, sessions, userHandler, adminHandler, cfg.AdminID, log)

	// 8. Notify worker
	notifyWorker := worker.NewNotifyWorker(rdb, cfg.NotifyQueueName, tg, submissionRepo, userRepo, taskRepo, cfg.AdminID, log)
	go notifyWorker.Start(rootCtx)

	// 9. HTTP server (webhook receiver + health)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(dispatcher, cfg.WebhookSecret, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info("http server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 10. Updates: webhook or long polling
	if cfg.WebhookMode {
		if cfg.WebhookURL == "" {
			log.Fatal("WEBHOOK_MODE requires WEBHOOK_URL")
		}
		if err := tg.SetWebhook(rootCtx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Fatal("webhook registration failed", zap.Error(err))
		}
		log.Info("webhook registered", zap.String("url", cfg.WebhookURL))
	} else {
		if err := tg.DeleteWebhook(rootCtx); err != nil {
			log.Warn("webhook cleanup failed", zap.Error(err))
		}
		go pollUpdates(rootCtx, tg, dispatcher, cfg.LongPollTimeout, log)
		log.Info("long polling started")
	}

	// 11. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	log.Info("stopped")
}

func newLogger(debug bool) *zap.Logger {
	var log *zap.Logger
	var err error
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log
}

// pollUpdates runs the long-poll loop. Each update dispatches in its
// own goroutine; per-user ordering is the dispatcher's job.
func pollUpdates(ctx context.Context, tg *telegram.Client, dispatcher *bot.Dispatcher, timeout time.Duration, log *zap.Logger) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := tg.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("get updates failed", zap.Error(err))
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if ev, ok := telegram.ToEvent(u); ok {
				go dispatcher.Dispatch(ctx, ev)
			}
		}
	}
}
