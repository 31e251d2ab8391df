package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrIDCountMismatch   = errors.New("id count does not match embedding count")
)

// Hit is one index result: the stored position and its inner-product score.
type Hit struct {
	Position int
	Score    float64
}

// Index answers top-k inner-product queries over unit-length vectors. Hits are
// ordered by descending score.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
}

// Normalize returns a unit-length copy of v. The zero vector is returned as-is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

var _ Index = (*FlatIndex)(nil)

// FlatIndex is an exact in-memory inner-product index. Position i of the index
// belongs to IDs()[i].
type FlatIndex struct {
	ids     []uuid.UUID
	vectors [][]float32
	dim     int
}

// BuildFlatIndex normalises every row of matrix and pairs it with ids, which
// must be in the same order.
func BuildFlatIndex(ids []uuid.UUID, matrix [][]float32) (*FlatIndex, error) {
	if len(ids) != len(matrix) {
		return nil, fmt.Errorf("failed to build index: %d ids, %d vectors: %w", len(ids), len(matrix), ErrIDCountMismatch)
	}
	idx := &FlatIndex{
		ids:     make([]uuid.UUID, len(ids)),
		vectors: make([][]float32, len(matrix)),
	}
	copy(idx.ids, ids)
	for i, row := range matrix {
		if i == 0 {
			idx.dim = len(row)
		} else if len(row) != idx.dim {
			return nil, fmt.Errorf("failed to build index: row %d has %d dims, want %d: %w", i, len(row), idx.dim, ErrDimensionMismatch)
		}
		idx.vectors[i] = Normalize(row)
	}
	return idx, nil
}

func (f *FlatIndex) Len() int { return len(f.vectors) }

func (f *FlatIndex) Dim() int { return f.dim }

// IDs returns the parallel id array.
func (f *FlatIndex) IDs() []uuid.UUID { return f.ids }

// Vector returns the stored, normalised vector at position.
func (f *FlatIndex) Vector(position int) []float32 { return f.vectors[position] }

func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("failed to search index: query has %d dims, want %d: %w", len(query), f.dim, ErrDimensionMismatch)
	}

	hits := make([]Hit, len(f.vectors))
	for i, vec := range f.vectors {
		hits[i] = Hit{Position: i, Score: dot(query, vec)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
