package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/internal/telemetry"
)

// ErrEmbeddingsUnavailable is returned when the circuit breaker is open.
// Callers should leave the document retryable rather than failing it.
var ErrEmbeddingsUnavailable = errors.New("embeddings service unavailable")

// EmbeddingClient wraps the Gemini embeddings API with a circuit breaker
// and a client-side rate limiter so one misbehaving tenant cannot burn the
// shared API quota.
type EmbeddingClient struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

func NewEmbeddingClient(apiKey, model string, rps int, metrics *telemetry.Metrics) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmbeddingsAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if metrics != nil {
				metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	if rps <= 0 {
		rps = 5
	}

	return &EmbeddingClient{
		client:  client,
		model:   model,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		metrics: metrics,
	}, nil
}

// EmbedText returns the embedding vector for one chunk of text.
func (ec *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embedding-client")
	ctx, span := tracer.Start(ctx, "embeddings.embed_text")
	defer span.End()

	span.SetAttributes(
		attribute.String("embeddings.model", ec.model),
		attribute.Int("embeddings.text_length", len(text)),
	)

	if err := ec.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("embeddings.rate_limited", true))
		return nil, err
	}

	result, err := ec.breaker.Execute(func() (interface{}, error) {
		model := ec.client.EmbeddingModel(ec.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("embeddings.circuit_breaker_open", true))
			return nil, ErrEmbeddingsUnavailable
		}
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, err
	}

	if ec.metrics != nil {
		// Gemini does not report embedding token usage, ~4 chars per token
		ec.metrics.RecordEmbeddingTokens(int64(len(text)/4), ec.model)
	}

	span.SetAttributes(attribute.Bool("embeddings.success", true))
	return result.([]float32), nil
}

// EmbedBatch embeds texts in order. It stops at the first failure so the
// caller can persist partial progress and retry the remainder.
func (ec *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := ec.EmbedText(ctx, text)
		if err != nil {
			return vectors, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func (ec *EmbeddingClient) Close() error {
	if ec.client != nil {
		return ec.client.Close()
	}
	return nil
}
