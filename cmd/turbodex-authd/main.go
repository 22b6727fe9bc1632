// Command turbodex-authd serves the auth API over HTTP.
//
// Configuration comes from the environment (see internal/envconfig). With
// AUTH_STORE=redis and no REDIS_ADDR an in-process miniredis is started, which
// keeps local runs dependency free.
//
// Run:
//
//	AUTH_STORE=redis go run ./cmd/turbodex-authd
//
// Then:
//
//	curl -i -X POST localhost:8080/v1/auth/signup \
//	  -d '{"username":"alice","password":"Secret123!","display_name":"Alice"}'
//	curl -i -X POST localhost:8080/v1/auth/login \
//	  -d '{"username":"alice","password":"Secret123!"}'
//	curl -i localhost:8080/v1/auth/me -H "Authorization: Bearer <ACCESS_TOKEN>"
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	auth "github.com/Turbo-Dex/backend"
	"github.com/Turbo-Dex/backend/internal/envconfig"
	"github.com/Turbo-Dex/backend/internal/httpapi"
	"github.com/Turbo-Dex/backend/internal/logger"
	promexport "github.com/Turbo-Dex/backend/metrics/export/prometheus"
	"github.com/Turbo-Dex/backend/store/memory"
	"github.com/Turbo-Dex/backend/store/postgres"
	redisstore "github.com/Turbo-Dex/backend/store/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "turbodex-authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := envconfig.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(settings.AppEnv)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, settings, log)
	if err != nil {
		return err
	}
	defer backend.close()

	builder := auth.New().
		WithConfig(settings.EngineConfig()).
		WithStore(backend.store).
		WithLogger(log)
	if settings.AuditEnabled {
		builder = builder.WithAuditSink(auth.NewZapSink(log))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	opts := httpapi.Options{Health: backend.health}
	if settings.MetricsEnabled {
		opts.Metrics = promexport.NewPrometheusExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              settings.HTTPAddr,
		Handler:           httpapi.New(engine, log, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", settings.HTTPAddr), zap.String("store", settings.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type backend struct {
	store  auth.Store
	health func(ctx context.Context) error
	close  func()
}

func openBackend(ctx context.Context, s *envconfig.Settings, log *zap.Logger) (*backend, error) {
	switch s.Store {
	case envconfig.StoreRedis:
		return openRedis(s, log)
	case envconfig.StorePostgres:
		return openPostgres(ctx, s, log)
	default:
		log.Warn("using in-memory store; data is lost on restart")
		return &backend{store: memory.New(), close: func() {}}, nil
	}
}

func openRedis(s *envconfig.Settings, log *zap.Logger) (*backend, error) {
	addr := s.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		log.Warn("REDIS_ADDR empty, using miniredis", zap.String("addr", addr))
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
	st := redisstore.New(client, redisstore.DefaultPrefix)

	return &backend{
		store: st,
		health: func(ctx context.Context) error {
			_, err := st.Ping(ctx)
			return err
		},
		close: func() {
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		},
	}, nil
}

func openPostgres(ctx context.Context, s *envconfig.Settings, log *zap.Logger) (*backend, error) {
	db, err := postgres.Open(ctx, s.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres migrations applied")

	return &backend{
		store:  postgres.New(db),
		health: db.PingContext,
		close:  func() { _ = db.Close() },
	}, nil
}
