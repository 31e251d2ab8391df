package generativeAI

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Encoder = (*CachedEncoder)(nil)

// CachedEncoder memoises encodings by exact input text.
type CachedEncoder struct {
	inner Encoder
	cache *cache.Cache
}

func NewCachedEncoder(inner Encoder, ttl time.Duration) *CachedEncoder {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEncoder{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if cached, found := e.cache.Get(text); found {
		return cached.([]float32), nil
	}
	vec, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, cache.DefaultExpiration)
	return vec, nil
}

// EncodeBatch only sends the texts that are not cached yet.
func (e *CachedEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, found := e.cache.Get(text); found {
			vectors[i] = cached.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	encoded, err := e.inner.EncodeBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range encoded {
		vectors[missingIdx[j]] = vec
		e.cache.Set(missing[j], vec, cache.DefaultExpiration)
	}
	return vectors, nil
}
