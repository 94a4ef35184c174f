package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pollwallet/pollwallet/internal/authority"
	apperrors "github.com/pollwallet/pollwallet/internal/errors"
	"github.com/pollwallet/pollwallet/internal/health"
	"github.com/pollwallet/pollwallet/internal/idempotency"
	"github.com/pollwallet/pollwallet/internal/lifecycle"
	"github.com/pollwallet/pollwallet/internal/repository"
	"github.com/pollwallet/pollwallet/internal/session"
	appsync "github.com/pollwallet/pollwallet/internal/sync"
	"github.com/pollwallet/pollwallet/internal/usercache"
	"github.com/pollwallet/pollwallet/internal/votes"
	"github.com/pollwallet/pollwallet/pkg/config"
	"github.com/pollwallet/pollwallet/pkg/graceful"
	"github.com/pollwallet/pollwallet/pkg/logger"
	"github.com/pollwallet/pollwallet/pkg/metrics"
	"github.com/pollwallet/pollwallet/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pollwallet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Level:         cfg.LogLevel,
		FilePath:      cfg.LogFile,
		SentryEnabled: cfg.Sentry.Enabled,
	})
	slog.SetDefault(log)

	log.Info("starting pollwallet client",
		slog.String("env", cfg.AppEnv),
		slog.String("authority", cfg.Authority.BaseURL),
		slog.String("http_addr", cfg.HTTP.Addr),
	)

	config.Watch(v, log, func(next *config.Config) {
		// Connection settings need a restart; the reload is logged so the
		// operator knows the file was picked up.
		log.Info("configuration updated on disk", slog.String("log_level", next.LogLevel))
	})

	session.RegisterTransitionRecorder(metrics.RecordSessionTransition)

	rdb, err := redis.New(ctx, redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.PoolTimeout,
		IdleTimeout:  cfg.Redis.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	identities := repository.NewIdentityStore(rdb.Client, log)
	deviceToken, err := identities.DeviceToken(ctx)
	if err != nil {
		return fmt.Errorf("initialize device token: %w", err)
	}

	authClient := authority.NewClient(cfg.Authority.BaseURL, cfg.Authority.Timeout, log)
	bridge := appsync.NewAuthorityBridge(authClient)

	// The daemon has no interactive surface; a frontend supplies the real
	// confirmation dialog. Here a conflict is resolved in favor of this
	// device, matching the flow's confirmed branch.
	confirmer := session.ConfirmerFunc(func(ctx context.Context, ownerID string) bool {
		log.Warn("terminating competing session", slog.String("owner_id", ownerID))
		return true
	})

	guard := session.NewGuard(bridge, confirmer, log)
	dedup := votes.NewDeduplicator(bridge, votes.NewRedisStore(rdb.Client, log), deviceToken, log)

	client := appsync.NewClient(appsync.Config{
		Authority:     bridge,
		Guard:         guard,
		Dedup:         dedup,
		Identities:    identities,
		Snapshots:     usercache.NewCache(rdb.Client),
		Submits:       idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, log), log),
		ErrHandler:    apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Notifier:      logNotifier{log: log},
		Log:           log,
		RegenInterval: cfg.Client.RegenTickInterval,
	})

	if user, err := client.Restore(ctx); err == nil && user != nil {
		log.Info("session restored", slog.String("user_id", user.ID))
	}
	if err := client.RefreshPolls(ctx); err != nil {
		log.Warn("initial poll refresh failed", slog.Any("error", err))
	}
	go client.RunPollRefresher(ctx, cfg.Client.PollRefreshInterval)

	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(rdb.Client))
	checker.AddCheck("authority", authClient)

	server := graceful.NewServer(log, &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newMux(checker),
	}, cfg.HTTP.ShutdownTimeout)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	shutdown.Register("sync client", func(ctx context.Context) error {
		client.Close()
		return nil
	})

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", slog.Any("error", err))
		}
	case <-ctx.Done():
		<-serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("pollwallet client stopped")
	return nil
}

// logNotifier routes user-facing notifications to the log until a
// frontend takes over.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Success(message string) {
	n.log.Info("notification", slog.String("message", message))
}

func (n logNotifier) Error(message string) {
	n.log.Warn("notification", slog.String("message", message))
}

func newMux(checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	return mux
}
