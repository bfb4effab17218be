// cmd/catalog/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamenexus/internal/catalog"
	"gamenexus/internal/messaging"
	"gamenexus/internal/messaging/noop"
	"gamenexus/internal/platform/config"
	"gamenexus/internal/platform/database"
	"gamenexus/internal/platform/logging"
	"gamenexus/internal/platform/telemetry"
	"gamenexus/internal/search"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load(config.CatalogPort)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-catalog")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName+"-catalog")
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, 10, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store, closeStore, err := database.OpenEventStore(ctx, cfg.EventStoreDriver, cfg.SQLitePath, db)
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	defer closeStore()

	// Name uniqueness is checked against the read side.
	documents := search.NewPostgresRepository(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare read store: %v", err)
	}

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	svc := catalog.NewService(catalog.NewRepository(store), documents, publisher, logger)
	handler := catalog.NewHandler(svc, logger)
	limiter := rate.NewLimiter(rate.Limit(cfg.CommandRateLimit), cfg.CommandRateBurst)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("🚀 Starting Catalog Service on port %s (event store: %s)\n", cfg.Port, cfg.EventStoreDriver)
	if err := serve(ctx, server); err != nil {
		log.Fatalf("Catalog service stopped: %v", err)
	}
}

// serve runs server until ctx is cancelled, then drains it.
func serve(ctx context.Context, server *http.Server) error {
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
	return g.Wait()
}

// newPublisher returns the Kafka publisher, or the noop publisher when no
// brokers are configured. Without brokers the read side never fills, so name
// conflicts go undetected and searches stay empty.
func newPublisher(cfg config.Config, logger *slog.Logger) (messaging.Publisher, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS is empty: snapshots are not published, the read side stays empty and duplicate names are not rejected")
		return noop.Publisher{}, func() error { return nil }
	}
	kafkaPublisher := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.KafkaBrokers, cfg.GamesTopic))
	return kafkaPublisher, kafkaPublisher.Close
}
