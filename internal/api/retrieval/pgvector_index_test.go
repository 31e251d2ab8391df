package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPgVectorTest(t *testing.T) (*PgVectorIndex, pgxmock.PgxPoolIface) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPgVectorIndex(mockPool, logger), mockPool
}

func TestPgVectorIndex_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		index, mockPool := setupPgVectorTest(t)
		rows := pgxmock.NewRows([]string{"position", "score"}).
			AddRow(4, 0.93).
			AddRow(1, 0.71)

		mockPool.ExpectQuery("SELECT position, (.+) AS score FROM place_embeddings ORDER BY").
			WithArgs(pgxmock.AnyArg(), 2).
			WillReturnRows(rows)

		hits, err := index.Search(ctx, []float32{0.6, 0.8}, 2)
		require.NoError(t, err)
		assert.Equal(t, []Hit{{Position: 4, Score: 0.93}, {Position: 1, Score: 0.71}}, hits)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		index, mockPool := setupPgVectorTest(t)
		dbErr := errors.New("extension vector is not installed")
		mockPool.ExpectQuery("SELECT position").
			WithArgs(pgxmock.AnyArg(), 2).
			WillReturnError(dbErr)

		_, err := index.Search(ctx, []float32{1, 0}, 2)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgVectorIndex_LoadFlatIndex(t *testing.T) {
	index, mockPool := setupPgVectorTest(t)
	id1, id2 := uuid.New(), uuid.New()

	rows := pgxmock.NewRows([]string{"place_id", "embedding"}).
		AddRow(id1, pgvector.NewVector([]float32{3, 4})).
		AddRow(id2, pgvector.NewVector([]float32{0, 1}))
	mockPool.ExpectQuery("SELECT place_id, embedding FROM place_embeddings ORDER BY position").
		WillReturnRows(rows)

	flat, err := index.LoadFlatIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id1, id2}, flat.IDs())
	assert.InDelta(t, 0.6, flat.Vector(0)[0], 1e-6)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgVectorIndex_LoadIDs(t *testing.T) {
	index, mockPool := setupPgVectorTest(t)
	id1, id2 := uuid.New(), uuid.New()

	mockPool.ExpectQuery("SELECT place_id FROM place_embeddings ORDER BY position").
		WillReturnRows(pgxmock.NewRows([]string{"place_id"}).AddRow(id1).AddRow(id2))

	ids, err := index.LoadIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id1, id2}, ids)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgVectorIndex_Persist(t *testing.T) {
	ctx := context.Background()
	flat, err := BuildFlatIndex([]uuid.UUID{uuid.New(), uuid.New()}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		index, mockPool := setupPgVectorTest(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec("TRUNCATE place_embeddings").
			WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
		mockPool.ExpectCopyFrom(pgx.Identifier{"place_embeddings"}, []string{"position", "place_id", "embedding"}).
			WillReturnResult(2)
		mockPool.ExpectCommit()

		require.NoError(t, index.Persist(ctx, flat))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("copy failure rolls back", func(t *testing.T) {
		index, mockPool := setupPgVectorTest(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec("TRUNCATE place_embeddings").
			WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
		mockPool.ExpectCopyFrom(pgx.Identifier{"place_embeddings"}, []string{"position", "place_id", "embedding"}).
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()

		err := index.Persist(ctx, flat)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
