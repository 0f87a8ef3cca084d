package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskpilot/internal/capability"
)

// Model-tier sampling. Classification wants short, near-deterministic
// output regardless of what the conversational calls are configured with.
const (
	resolveMaxTokens   = 200
	resolveTemperature = 0.1
	resolveTimeout     = 10 * time.Second
	resolveCacheTTL    = 10 * time.Minute
)

// Resolver turns a raw user message into an Intent. It asks the
// configured generator first and falls back to the keyword rules when
// the model is unavailable, rate limited, or returns output that does
// not survive extraction and schema validation. Resolve never fails;
// the worst case for any message is the deterministic tier's answer.
type Resolver struct {
	generator capability.Generator
	cache     capability.Cache
	limiter   capability.RateLimiter
	tracer    capability.Tracer
	logger    zerolog.Logger
}

// NewResolver wires a resolver from capability ports. Pass the no-op
// adapters to run rules-only.
func NewResolver(gen capability.Generator, cache capability.Cache, limiter capability.RateLimiter, tracer capability.Tracer, logger zerolog.Logger) *Resolver {
	return &Resolver{
		generator: gen,
		cache:     cache,
		limiter:   limiter,
		tracer:    tracer,
		logger:    logger,
	}
}

// Resolve classifies message. Empty input is general without touching
// either tier.
func (r *Resolver) Resolve(ctx context.Context, message string) Intent {
	if strings.TrimSpace(message) == "" {
		return General()
	}
	if in, ok := r.resolveModel(ctx, message); ok {
		return in
	}
	return ResolveRules(message)
}

// payload is the wire shape the model must produce.
type payload struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

func (r *Resolver) resolveModel(ctx context.Context, message string) (Intent, bool) {
	ctx, finish := r.tracer.StartSpan(ctx, "intent.resolve", map[string]any{"message_len": len(message)})
	var spanErr error
	defer func() { finish(spanErr) }()

	key := "intent:" + strings.ToLower(normalizeMessage(message))
	if cached, ok := r.cache.Get(ctx, key); ok {
		if in, ok := decodePayload(cached); ok {
			r.tracer.Event(ctx, "intent.cache_hit", nil)
			return in, true
		}
		// Stale or corrupt entry; drop it and classify fresh.
		_ = r.cache.Delete(ctx, key)
	}

	release, err := r.limiter.Acquire(ctx, "generate")
	if err != nil {
		spanErr = err
		r.logger.Debug().Err(err).Msg("intent model rate limited, using rules")
		return Intent{}, false
	}
	defer release()

	raw, err := r.generator.Generate(ctx, BuildPrompt(message), capability.GenerateOptions{
		MaxTokens:   resolveMaxTokens,
		Temperature: resolveTemperature,
		Timeout:     resolveTimeout,
	})
	if err != nil {
		spanErr = err
		if !errors.Is(err, capability.ErrUnavailable) {
			r.logger.Debug().Err(err).Msg("intent model call failed, using rules")
		}
		return Intent{}, false
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		spanErr = errors.New("no json object in model output")
		r.logger.Debug().Str("output", truncate(raw, 200)).Msg("intent model output had no json object, using rules")
		return Intent{}, false
	}
	data := []byte(obj)
	if err := validatePayload(data); err != nil {
		spanErr = err
		r.logger.Debug().Err(err).Msg("intent model output failed validation, using rules")
		return Intent{}, false
	}
	in, ok := decodePayload(data)
	if !ok {
		spanErr = errors.New("payload decode failed")
		return Intent{}, false
	}

	if err := r.cache.Set(ctx, key, data, resolveCacheTTL); err != nil {
		r.logger.Debug().Err(err).Msg("intent cache write failed")
	}
	return in, true
}

func decodePayload(data []byte) (Intent, bool) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Intent{}, false
	}
	t := Type(p.Type)
	if !t.Valid() {
		return Intent{}, false
	}
	if p.Parameters == nil {
		p.Parameters = map[string]any{}
	}
	return Intent{Type: t, Parameters: p.Parameters}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
