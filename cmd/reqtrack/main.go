package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/avast/retry-go/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/reqtrack/internal/console/handler"
	"github.com/xela07ax/reqtrack/internal/console/server"
	"github.com/xela07ax/reqtrack/internal/console/service"
	"github.com/xela07ax/reqtrack/internal/events"
	"github.com/xela07ax/reqtrack/internal/infra"
	"github.com/xela07ax/reqtrack/internal/metrics"
	"github.com/xela07ax/reqtrack/internal/notify"
	"github.com/xela07ax/reqtrack/internal/repository/mongo"
	"github.com/xela07ax/reqtrack/internal/repository/postgres"
)

// store — то, что main знает о хранилище помимо операций сервиса.
type store interface {
	service.RequestRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// schemaEnsurer реализуют хранилища, которым нужна схема (postgres).
type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Хранилище
	repo, err := openStore(appCtx, cfg.Store)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	// Хранилище может подниматься дольше сервиса (docker compose), поэтому пингуем с бэкоффом
	err = retry.New(
		retry.Context(appCtx),
		retry.Attempts(cfg.Store.ConnectAttempts),
		retry.DelayType(retry.BackOffDelay),
	).Do(func() error {
		pingCtx, pingCancel := context.WithTimeout(appCtx, cfg.Store.Timeout)
		defer pingCancel()

		if err := repo.Ping(pingCtx); err != nil {
			logger.Warn("store unreachable, retrying", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		logger.Fatal("store unreachable", zap.Error(err))
	}
	if s, ok := repo.(schemaEnsurer); ok {
		if err := s.EnsureSchema(appCtx); err != nil {
			logger.Fatal("failed to prepare store schema", zap.Error(err))
		}
	}
	logger.Info("store connected", zap.String("driver", cfg.Store.Driver))

	// 3. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 4. События (опционально)
	var publisher service.EventPublisher = events.Nop{}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(appCtx).Err(); err != nil {
			// События best-effort, сервис работает и без Redis
			logger.Warn("redis unreachable, events will be dropped", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		publisher = events.NewRedisPublisher(rdb, logger)
	}

	// 5. Почта
	var transport notify.Sender
	if cfg.Mail.Enabled() {
		smtp, err := notify.NewSMTPSender(cfg.Mail)
		if err != nil {
			logger.Fatal("failed to init smtp sender", zap.Error(err))
		}
		transport = smtp
		logger.Info("smtp notifications enabled", zap.String("host", cfg.Mail.Host), zap.Int("port", cfg.Mail.Port))
	} else {
		transport = notify.NewLogSender(logger)
		logger.Warn("mail credentials not configured, notifications are logged only")
	}

	guarded := notify.NewGuard(transport, notify.GuardSettings{
		Timeout:       cfg.Mail.Timeout,
		RateLimit:     cfg.Mail.RateLimit,
		Burst:         cfg.Mail.Burst,
		MaxRequests:   cfg.Mail.CBMaxRequests,
		Interval:      cfg.Mail.CBInterval,
		OpenTimeout:   cfg.Mail.CBTimeout,
		FailureStreak: cfg.Mail.CBFailures,
		OnStateChange: m.SetMailCircuitOpen,
	})
	notifier := notify.NewNotifier(guarded, logger, m)

	// 6. Слои приложения (Dependency Injection)
	requestService := service.NewRequestService(repo, notifier, publisher, logger)
	api := server.NewConsoleServer(
		logger,
		m,
		reg,
		handler.NewPageHandler(),
		handler.NewRequestHandler(requestService, m, logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("request tracker started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("request tracker stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := repo.Close(shutdownCtx); err != nil {
		logger.Error("store close failed", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close failed", zap.Error(err))
		}
	}
	logger.Info("request tracker exited properly")
}

func openStore(ctx context.Context, cfg infra.StoreConfig) (store, error) {
	switch cfg.Driver {
	case infra.StoreDriverMongo:
		return mongo.Connect(ctx, cfg.URI, cfg.Database, cfg.Collection, cfg.Timeout)
	case infra.StoreDriverPostgres:
		return postgres.Open(cfg.URI, cfg.Collection, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
