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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/liamchampton/write-my-performance-review/internal/ai"
	"github.com/liamchampton/write-my-performance-review/internal/api"
	"github.com/liamchampton/write-my-performance-review/internal/auth"
	"github.com/liamchampton/write-my-performance-review/internal/config"
	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/events"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
	"github.com/liamchampton/write-my-performance-review/internal/persistence/file"
	"github.com/liamchampton/write-my-performance-review/internal/persistence/postgres"
	"github.com/liamchampton/write-my-performance-review/internal/persistence/sqlite"
	httptransport "github.com/liamchampton/write-my-performance-review/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logCloser := observability.SetupLogging(cfg.LogFile)
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	publisher, closePublisher := buildPublisher(cfg)
	defer closePublisher()

	aiConfig := ai.Config{
		Endpoint:   cfg.AI.Endpoint,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		APIType:    cfg.AI.APIType,
		APIVersion: cfg.AI.APIVersion,
		Timeout:    cfg.AI.Timeout,
		MaxRetries: cfg.AI.MaxRetries,
	}
	summarizer, err := buildSummarizer(aiConfig, cfg.AI)
	if err != nil {
		log.Fatalf("failed to configure ai collaborator: %v", err)
	}
	if cached, ok := summarizer.(*ai.Cached); ok {
		defer cached.Close()
	}

	service := domain.NewService(store, domain.WithPublisher(publisher))
	handler := api.NewHandler(service, summarizer)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	if static := api.StaticFiles(afero.NewOsFs(), cfg.StaticDir); static != nil {
		mux.Handle("/", static)
		log.Printf("serving static files from %s", cfg.StaticDir)
	}

	var root http.Handler = mux
	if cfg.JWTSecret != "" {
		root = auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}).Wrap(root)
	}
	root = api.RequestLogger(api.CORS(cfg.CORSOrigin)(root))

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress, ai.Budget(aiConfig)), root)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("activity-tracker listening on %s (store=%s)", cfg.HTTPAddress, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (domain.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.StoreFile:
		return file.NewStore(afero.NewOsFs(), cfg.DataFile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func buildPublisher(cfg config.Config) (domain.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}, func() {}
	}
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
	log.Printf("publishing change events to %s on %v", cfg.EventsTopic, cfg.KafkaBrokers)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Printf("failed to close event publisher: %v", err)
		}
	}
}

func buildSummarizer(clientCfg ai.Config, cfg config.AIConfig) (ai.Summarizer, error) {
	client, err := ai.NewClient(clientCfg)
	if errors.Is(err, ai.ErrNotConfigured) {
		log.Printf("ai collaborator not configured; summaries disabled")
		return ai.Unavailable{}, nil
	}
	if err != nil {
		return nil, err
	}

	log.Printf("ai collaborator enabled (model=%s)", cfg.Model)
	return ai.NewCached(client, cfg.CacheSize, cfg.CacheTTL, ai.Budget(clientCfg))
}
