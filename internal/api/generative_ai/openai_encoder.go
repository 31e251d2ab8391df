package generativeAI

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Encoder = (*OpenAIEncoder)(nil)

type OpenAIEncoder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *slog.Logger
}

func NewOpenAIEncoder(apiKey, model string, logger *slog.Logger) *OpenAIEncoder {
	m := openai.SmallEmbedding3
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &OpenAIEncoder{
		client: openai.NewClient(apiKey),
		model:  m,
		logger: logger,
	}
}

func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("OpenAIEncoder").Start(ctx, "EncodeBatch", trace.WithAttributes(
		attribute.String("model", string(e.model)),
		attribute.Int("texts.count", len(texts)),
	))
	defer span.End()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to create embeddings", slog.String("model", string(e.model)), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding request failed")
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("failed to create embeddings: got %d embeddings for %d texts: %w",
			len(resp.Data), len(texts), ErrEmptyEmbedding)
	}

	// results carry their input index and are not guaranteed to be ordered
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, ErrEmptyEmbedding
		}
		vectors[d.Index] = d.Embedding
	}

	span.SetStatus(codes.Ok, "Embeddings created")
	return vectors, nil
}
