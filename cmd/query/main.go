// cmd/query/main.go
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
	"time"

	"gamenexus/internal/catalog"
	"gamenexus/internal/library"
	"gamenexus/internal/messaging"
	"gamenexus/internal/platform/config"
	"gamenexus/internal/platform/database"
	"gamenexus/internal/platform/logging"
	"gamenexus/internal/platform/telemetry"
	"gamenexus/internal/search"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(config.QueryPort)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-query")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName+"-query")
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, 10, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	documents := search.NewPostgresRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare read store: %v", err)
	}

	// The reindex sweep replays the write side directly.
	store, closeStore, err := database.OpenEventStore(ctx, cfg.EventStoreDriver, cfg.SQLitePath, db)
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	defer closeStore()
	reindexer := search.NewReindexer(catalog.NewRepository(store), documents, 200, logger)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	libraries := library.NewRedisRepository(rdb)

	router := chi.NewRouter()
	search.NewHandler(documents, reindexer, logger).Mount(router)
	library.NewHandler(library.NewService(libraries, documents), logger).Mount(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 {
		games := messaging.NewKafkaStream(cfg.KafkaBrokers, cfg.ConsumerGroup+"-catalog", cfg.GamesTopic)
		defer games.Close()
		payments := messaging.NewKafkaStream(cfg.KafkaBrokers, cfg.ConsumerGroup+"-ownership", cfg.PaymentsTopic)
		defer payments.Close()

		catalogProjector := search.NewProjector(documents, logger)
		ownershipProjector := library.NewProjector(libraries, documents, logger)
		catalogConsumer := messaging.NewConsumer("catalog", games, catalogProjector.Handle, logger)
		ownershipConsumer := messaging.NewConsumer("ownership", payments, ownershipProjector.Handle, logger)
		g.Go(func() error { return catalogConsumer.Run(ctx) })
		g.Go(func() error { return ownershipConsumer.Run(ctx) })
	} else {
		logger.Warn("KAFKA_BROKERS is empty: projectors are disabled, the catalog read side only changes on reindex and libraries never fill")
	}

	fmt.Printf("🚀 Starting Query Service on port %s\n", cfg.Port)
	if err := g.Wait(); err != nil {
		log.Fatalf("Query service stopped: %v", err)
	}
}
