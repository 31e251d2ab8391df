package generativeAI

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

var _ Encoder = (*GeminiEncoder)(nil)

type GeminiEncoder struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGeminiEncoder(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiEncoder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEncoder{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (e *GeminiEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GeminiEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("GeminiEncoder").Start(ctx, "EncodeBatch", trace.WithAttributes(
		attribute.String("model", e.model),
		attribute.Int("texts.count", len(texts)),
	))
	defer span.End()

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to embed content", slog.String("model", e.model), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding request failed")
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		span.SetStatus(codes.Error, "Embedding count mismatch")
		return nil, fmt.Errorf("failed to embed content: got %d embeddings for %d texts: %w",
			len(resp.Embeddings), len(texts), ErrEmptyEmbedding)
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, ErrEmptyEmbedding
		}
		vectors[i] = emb.Values
	}

	span.SetStatus(codes.Ok, "Content embedded")
	return vectors, nil
}
