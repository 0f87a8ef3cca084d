package capability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskpilot/internal/config"
)

// Factory creates capability adapters from configuration. Anything
// disabled or unconfigured comes back as a no-op implementation, so
// callers never hold a nil port.
type Factory struct {
	cfg    *config.CapabilityConfig
	logger zerolog.Logger
}

// NewFactory returns a factory reading from cfg.
func NewFactory(cfg *config.CapabilityConfig, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Generator builds the text-generation adapter for the configured
// provider. Unknown or disabled providers yield a generator that always
// reports ErrUnavailable, which keeps every caller on its fallback path.
func (f *Factory) Generator() Generator {
	switch strings.ToLower(f.cfg.Provider) {
	case "openai":
		return NewOpenAI(f.cfg.OpenAI.APIKey, f.cfg.OpenAI.BaseURL, f.cfg.OpenAI.Model, f.cfg.OpenAI.EmbedModel)
	case "ollama":
		client, err := NewOllama(f.cfg.Ollama.Host, f.cfg.Ollama.Model)
		if err != nil {
			f.logger.Warn().Err(err).Msg("ollama unavailable, text generation disabled")
			return noopGenerator{}
		}
		return client
	case "", "none":
		return noopGenerator{}
	default:
		f.logger.Warn().Str("provider", f.cfg.Provider).Msg("unknown generation provider, text generation disabled")
		return noopGenerator{}
	}
}

// Embedder builds the embedding adapter, or a no-op when enrichment is
// disabled.
func (f *Factory) Embedder() Embedder {
	if !f.cfg.Embedding.Enabled {
		return noopEmbedder{}
	}
	switch strings.ToLower(f.cfg.Embedding.Provider) {
	case "openai":
		return NewOpenAI(f.cfg.OpenAI.APIKey, f.cfg.OpenAI.BaseURL, f.cfg.OpenAI.Model, f.cfg.OpenAI.EmbedModel)
	case "ollama":
		client, err := NewOllama(f.cfg.Ollama.Host, f.cfg.Ollama.Model)
		if err != nil {
			f.logger.Warn().Err(err).Msg("ollama unavailable, embeddings disabled")
			return noopEmbedder{}
		}
		return client
	default:
		f.logger.Warn().Str("provider", f.cfg.Embedding.Provider).Msg("unknown embedding provider, embeddings disabled")
		return noopEmbedder{}
	}
}

// Cache builds the memoization cache from config.
func (f *Factory) Cache() Cache {
	if !f.cfg.CacheEnabled {
		return noopCache{}
	}
	return NewLRUCache(f.cfg.CacheCapacity)
}

// RateLimiter builds the outbound-call limiter from config.
func (f *Factory) RateLimiter() RateLimiter {
	if !f.cfg.RateLimitEnabled {
		return noopRateLimiter{}
	}
	return NewTokenBucket(f.cfg.RateLimitCapacity, f.cfg.RateLimitRefill)
}

// Tracer builds the span tracer from config.
func (f *Factory) Tracer() Tracer {
	if !f.cfg.Tracing {
		return noopTracer{}
	}
	return NewZerologTracer(f.logger)
}

// Options returns the configured generation options, applied to
// suggestion-style calls.
func (f *Factory) Options() GenerateOptions {
	return GenerateOptions{
		MaxTokens:   f.cfg.MaxTokens,
		Temperature: f.cfg.Temperature,
		Timeout:     f.cfg.Timeout,
	}
}

// NopIndex is the no-op VectorIndex wired when semantic enrichment is
// disabled. Upserts vanish and searches match nothing.
type NopIndex struct{}

func (NopIndex) Upsert(ctx context.Context, id int64, vector []float32, metadata map[string]string) error {
	return nil
}
func (NopIndex) Delete(ctx context.Context, id int64) error { return nil }
func (NopIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	return nil, nil
}

type noopGenerator struct{}

func (noopGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return "", ErrUnavailable
}

type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrUnavailable
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (noopCache) Delete(ctx context.Context, key string) error { return nil }

type noopRateLimiter struct{}

func (noopRateLimiter) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}
func (noopTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var (
	_ Generator   = noopGenerator{}
	_ Embedder    = noopEmbedder{}
	_ Cache       = noopCache{}
	_ RateLimiter = noopRateLimiter{}
	_ Tracer      = noopTracer{}
	_ VectorIndex = NopIndex{}
)
