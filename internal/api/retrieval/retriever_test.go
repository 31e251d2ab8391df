package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type stubIndex struct {
	hits []Hit
	err  error
}

func (s stubIndex) Search(_ context.Context, _ []float32, k int) ([]Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func setupRetrieverTest(t *testing.T, index Index, ids []uuid.UUID) (*Retriever, *MockEncoder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	encoder := new(MockEncoder)
	return NewRetriever(encoder, index, ids, 0, logger), encoder
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	t.Run("maps positions to ids and tags the sub-query", func(t *testing.T) {
		idx, err := BuildFlatIndex(ids, [][]float32{{1, 0}, {0, 1}, {1, 1}})
		require.NoError(t, err)
		retriever, encoder := setupRetrieverTest(t, idx, ids)
		assert.Equal(t, DefaultTopK, retriever.TopK())

		// unnormalised on purpose
		encoder.On("Encode", mock.Anything, "jazz club").Return([]float32{0, 5}, nil).Once()

		matches, err := retriever.Retrieve(ctx, "jazz club", 2, nil)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, ids[1], matches[0].PlaceID)
		assert.InDelta(t, 1.0, matches[0].SimilarityScore, 1e-6)
		assert.Equal(t, ids[2], matches[1].PlaceID)
		for _, m := range matches {
			assert.Equal(t, "jazz club", m.SourceQuery)
		}
		encoder.AssertExpectations(t)
	})

	t.Run("excluded ids are dropped", func(t *testing.T) {
		idx, err := BuildFlatIndex(ids, [][]float32{{1, 0}, {0, 1}, {1, 1}})
		require.NoError(t, err)
		retriever, encoder := setupRetrieverTest(t, idx, ids)
		encoder.On("Encode", mock.Anything, "park").Return([]float32{1, 0}, nil).Once()

		exclude := map[uuid.UUID]struct{}{ids[0]: {}}
		matches, err := retriever.Retrieve(ctx, "park", 0, exclude)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		for _, m := range matches {
			assert.NotEqual(t, ids[0], m.PlaceID)
		}
	})

	t.Run("no hits is an empty result", func(t *testing.T) {
		retriever, encoder := setupRetrieverTest(t, stubIndex{}, ids)
		encoder.On("Encode", mock.Anything, "moon base").Return([]float32{1, 0}, nil).Once()

		matches, err := retriever.Retrieve(ctx, "moon base", 5, nil)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("positions outside the id array are skipped", func(t *testing.T) {
		retriever, encoder := setupRetrieverTest(t, stubIndex{hits: []Hit{{Position: 7, Score: 0.9}, {Position: 0, Score: 0.5}}}, ids)
		encoder.On("Encode", mock.Anything, "cafe").Return([]float32{1, 0}, nil).Once()

		matches, err := retriever.Retrieve(ctx, "cafe", 5, nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, ids[0], matches[0].PlaceID)
	})

	t.Run("encoder error", func(t *testing.T) {
		retriever, encoder := setupRetrieverTest(t, stubIndex{}, ids)
		encErr := errors.New("quota exceeded")
		encoder.On("Encode", mock.Anything, "bar").Return(nil, encErr).Once()

		_, err := retriever.Retrieve(ctx, "bar", 5, nil)
		assert.ErrorIs(t, err, encErr)
	})

	t.Run("index error", func(t *testing.T) {
		idxErr := errors.New("index offline")
		retriever, encoder := setupRetrieverTest(t, stubIndex{err: idxErr}, ids)
		encoder.On("Encode", mock.Anything, "bar").Return([]float32{1, 0}, nil).Once()

		_, err := retriever.Retrieve(ctx, "bar", 5, nil)
		assert.ErrorIs(t, err, idxErr)
	})
}
