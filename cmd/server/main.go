package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"flowgate/internal/platform/config"
	"flowgate/internal/platform/httpserver"
	"flowgate/internal/platform/logger"
	"flowgate/internal/platform/postgres"
	platformredis "flowgate/internal/platform/redis"
	"flowgate/internal/token"
	"flowgate/internal/workflow/cache"
	"flowgate/internal/workflow/events"
	eventskafka "flowgate/internal/workflow/events/kafka"
	"flowgate/internal/workflow/handler"
	wfmetrics "flowgate/internal/workflow/metrics"
	"flowgate/internal/workflow/registry"
	"flowgate/internal/workflow/service"
	"flowgate/internal/workflow/store"
	memorystore "flowgate/internal/workflow/store/memory"
	postgresstore "flowgate/internal/workflow/store/postgres"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal/workflow packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Templates register once at startup, then the registry freezes.
	reg := registry.New()
	if err := registry.Seed(reg); err != nil {
		return err
	}

	var workflowStore store.Store
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		pgStore := postgresstore.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		workflowStore = pgStore
		log.Info("using postgres store")
	} else {
		workflowStore = memorystore.New()
		log.Warn("DATABASE_URL not set, using in-memory store; state will not survive restarts")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var emitter events.Emitter = events.NopEmitter{}
	kafkaPublisher, err := eventskafka.NewPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	if kafkaPublisher != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			kafkaPublisher.Close(flushCtx)
		}()
		emitter = kafkaPublisher
		log.Info("kafka event publisher enabled", "topic", cfg.Kafka.Topic)
	}

	workflowService := service.New(reg, workflowStore,
		service.WithEmitter(emitter),
		service.WithCache(cache.New(redisClient, cfg.StatusCacheTTL)),
		service.WithMetrics(wfmetrics.New()),
		service.WithLogger(log),
		service.WithMaxAttempts(cfg.TransitionRetries),
	)

	tokenService := token.NewService(cfg.JWTSigningKey, "flowgate")
	workflowHandler := handler.New(workflowService, log, token.NewServiceAdapter(tokenService))

	router := chi.NewRouter()
	workflowHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(db, redisClient))

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting flowgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthz reports liveness plus connectivity of the configured backends.
func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil && db.PingContext(ctx) != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil && redisClient.Health(ctx) != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
