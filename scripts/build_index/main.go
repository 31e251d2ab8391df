// Command build_index embeds every catalog place and stores the index in the
// place_embeddings table.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	appLogger "github.com/FACorreiaa/go-trip-planner/app/logger"
	"github.com/FACorreiaa/go-trip-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/retrieval"
)

func main() {
	batchSize := flag.Int("batch", retrieval.DefaultBatchSize, "places encoded per request")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := appLogger.New(os.Getenv("APP_ENV"), os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &cfg, *batchSize, logger); err != nil {
		logger.Error("Index build failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, batchSize int, logger *slog.Logger) error {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return err
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	encoder, err := generativeAI.NewEncoder(ctx, cfg.Retrieval.Encoder, logger)
	if err != nil {
		return err
	}

	idx, err := retrieval.BuildFromCatalog(ctx, poi.NewRepository(pool, logger), encoder, batchSize, logger)
	if err != nil {
		return err
	}
	if err := retrieval.NewPgVectorIndex(pool, logger).Persist(ctx, idx); err != nil {
		return err
	}

	logger.Info("Index stored", slog.Int("places", idx.Len()), slog.Int("dimensions", idx.Dim()))
	return nil
}
