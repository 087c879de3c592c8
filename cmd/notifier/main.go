package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/practicedesk/notifier/modules/notifications"
	"github.com/practicedesk/notifier/pkg/config"
	"github.com/practicedesk/notifier/pkg/consumer"
	"github.com/practicedesk/notifier/pkg/deliverylog"
	"github.com/practicedesk/notifier/pkg/destination"
	"github.com/practicedesk/notifier/pkg/logger"
	"github.com/practicedesk/notifier/pkg/notification"
	"github.com/practicedesk/notifier/pkg/pg"
	"github.com/practicedesk/notifier/pkg/provider"
	"github.com/practicedesk/notifier/pkg/queue"
	"github.com/practicedesk/notifier/pkg/realtime"
	"github.com/practicedesk/notifier/pkg/redis"
)

type appConfig struct {
	ServiceName string        `env:"SERVICE_NAME" envDefault:"notifier"`
	LogLevel    slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"json"`
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownFor time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// When enabled the real-time hub runs on Redis pub/sub, preserving
	// per-user event ordering across multiple process instances.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifier exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithLevel(cfg.LogLevel),
		logger.WithService(cfg.ServiceName),
	}
	if cfg.LogFormat == "text" {
		logOpts = append(logOpts, logger.WithTextFormat())
	} else {
		logOpts = append(logOpts, logger.WithJSONFormat())
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	store := notification.NewPGStore(pool)
	registry := destination.NewPGRegistry(pool)
	recorder := deliverylog.NewPGRecorder(pool)

	var hub realtime.Hub
	if cfg.RedisEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		hub = realtime.NewRedisHub(client, realtime.WithRedisHubLogger(log))
	} else {
		hub = realtime.NewMemoryHub()
	}
	defer hub.Close()

	var emailCfg provider.EmailConfig
	if err := config.Load(&emailCfg); err != nil {
		return err
	}
	var pushCfg provider.PushConfig
	if err := config.Load(&pushCfg); err != nil {
		return err
	}
	email := provider.NewPostmarkSender(emailCfg)
	push := provider.NewOneSignalSender(pushCfg)

	log.InfoContext(ctx, "channel adapters configured",
		slog.Bool("email_enabled", email.Enabled()),
		slog.Bool("push_enabled", push.Enabled()))

	pipeline, err := consumer.New(store, hub, recorder, registry, email, push,
		consumer.WithLogger(log))
	if err != nil {
		return err
	}

	var queueCfg queue.Config
	if err := config.Load(&queueCfg); err != nil {
		return err
	}
	worker, err := queue.NewWorker(queue.NewPGStorage(pool), pipeline.QueueHandler(),
		queue.WithWorkerLogger(log),
		queue.WithWorkerQueue(queueCfg.Queue),
		queue.WithPollInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithBatchSize(queueCfg.BatchSize))
	if err != nil {
		return err
	}
	if err := worker.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := worker.Stop(); err != nil && !errors.Is(err, queue.ErrNotStarted) {
			log.Error("failed to stop queue worker", logger.Error(err))
		}
	}()

	svc := notifications.NewService(registry, store, hub,
		notifications.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Get("/healthz", healthzHandler(pg.Healthcheck(pool)))
	r.Mount("/api/notifications", svc.Handle())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownFor)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Long-lived SSE connections outlast graceful shutdown; force
		// them closed so the hub can drain its subscribers.
		log.Error("http shutdown failed", logger.Error(err))
		_ = srv.Close()
	}

	return nil
}

func healthzHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
