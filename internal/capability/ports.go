// Package capability defines the narrow interfaces through which the core
// consumes external services (text generation, embeddings, vector search)
// together with the control adapters around them (cache, rate limiter,
// tracer). Every port has a no-op implementation selected by the factory,
// so a missing or failing capability degrades to the documented fallback
// instead of breaking a conversation.
package capability

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by disabled or unconfigured capabilities.
// Callers treat it like any other capability failure: log and fall back.
var ErrUnavailable = errors.New("capability: unavailable")

// GenerateOptions controls sampling and limits for one generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
	// Timeout bounds the capability call only, not the caller's overall
	// deadline. Zero means the caller's context governs.
	Timeout time.Duration
}

// Generator produces free text from a prompt. Implementations may fail for
// any reason (network, quota, malformed upstream output); callers must
// treat every error as a signal to use their deterministic fallback.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder maps text into a fixed-dimension vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one vector search hit.
type Match struct {
	ID       int64
	Score    float64
	Metadata map[string]string
}

// VectorIndex stores task embeddings for semantic lookup. All methods are
// best-effort from the core's point of view: an error never aborts the
// task operation that triggered the call.
type VectorIndex interface {
	Upsert(ctx context.Context, id int64, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Cache memoizes capability results keyed by normalized input.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RateLimiter gates throughput per capability key.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Tracer emits spans and events for observability.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}
