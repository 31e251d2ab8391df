package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-trip-planner/config"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var ErrEmptyEmbedding = errors.New("encoder returned no embedding")

// Encoder turns text into a fixed-length embedding vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEncoder builds the configured provider wrapped in a CachedEncoder.
func NewEncoder(ctx context.Context, cfg config.EncoderConfig, logger *slog.Logger) (*CachedEncoder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("failed to create %s encoder: api key is not set", cfg.Provider)
	}

	var inner Encoder
	switch cfg.Provider {
	case ProviderOpenAI:
		inner = NewOpenAIEncoder(cfg.APIKey, cfg.Model, logger)
	case ProviderGemini, "":
		gemini, err := NewGeminiEncoder(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		inner = gemini
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Provider)
	}

	return NewCachedEncoder(inner, cfg.CacheTTL), nil
}
