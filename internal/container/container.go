package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/recommend"
	"github.com/FACorreiaa/go-trip-planner/internal/api/retrieval"
	"github.com/FACorreiaa/go-trip-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
)

const (
	BackendMemory   = "memory"
	BackendPgVector = "pgvector"
)

// Container holds the read-only resources shared by every request: the
// catalog pool, the loaded index and the encoder.
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	ItineraryHandler *itinerary.HandlerImpl
}

// NewContainer migrates the database, loads the index and wires the pipeline.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready")
	}

	encoder, err := generativeAI.NewEncoder(ctx, cfg.Retrieval.Encoder, logger)
	if err != nil {
		pool.Close()
		logger.Error("Failed to initialize encoder", slog.Any("error", err))
		return nil, err
	}

	index, ids, err := loadIndex(ctx, cfg.Retrieval.Backend, retrieval.NewPgVectorIndex(pool, logger))
	if err != nil {
		pool.Close()
		logger.Error("Failed to load vector index", slog.Any("error", err))
		return nil, err
	}
	logger.Info("Vector index ready",
		slog.String("backend", cfg.Retrieval.Backend),
		slog.Int("places", len(ids)))

	poiRepo := poi.NewRepository(pool, logger)
	retriever := retrieval.NewRetriever(encoder, index, ids, cfg.Retrieval.TopK, logger)
	dayPlanner := planner.NewPlanner(planner.Options{
		BeamWidth:     cfg.Planner.BeamWidth,
		SolverTimeout: cfg.Planner.SolverTimeout,
	}, logger)
	recommendService := recommend.NewServiceImpl(retriever, poiRepo, dayPlanner, retriever.TopK(), nil, logger)

	weatherClient := weather.NewClient(cfg.Weather, logger)
	tripScheduler := scheduler.New(weatherClient, cfg.Weather.HorizonDays, nil, logger)

	itineraryService := itinerary.NewServiceImpl(recommendService, retriever.Encoder(), tripScheduler, weatherClient, nil, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		ItineraryHandler: itinerary.NewHandlerImpl(itineraryService, logger),
	}, nil
}

func loadIndex(ctx context.Context, backend string, store *retrieval.PgVectorIndex) (retrieval.Index, []uuid.UUID, error) {
	switch backend {
	case BackendPgVector:
		ids, err := store.LoadIDs(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store, ids, nil
	case BackendMemory, "":
		flat, err := store.LoadFlatIndex(ctx)
		if err != nil {
			return nil, nil, err
		}
		return flat, flat.IDs(), nil
	default:
		return nil, nil, fmt.Errorf("unknown retrieval backend %q", backend)
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
