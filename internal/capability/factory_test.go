package capability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/config"
)

func testFactory(cfg config.CapabilityConfig) *Factory {
	return NewFactory(&cfg, zerolog.Nop())
}

func TestFactoryDisabledGeneratorReportsUnavailable(t *testing.T) {
	for _, provider := range []string{"", "none", "something-else"} {
		f := testFactory(config.CapabilityConfig{Provider: provider})
		_, err := f.Generator().Generate(context.Background(), "prompt", GenerateOptions{})
		assert.ErrorIs(t, err, ErrUnavailable, "provider %q", provider)
	}
}

func TestFactorySelectsOpenAI(t *testing.T) {
	f := testFactory(config.CapabilityConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", EmbedModel: "text-embedding-3-small"},
	})
	_, ok := f.Generator().(*OpenAIClient)
	assert.True(t, ok)
}

func TestFactoryEmbedderDisabledByDefault(t *testing.T) {
	f := testFactory(config.CapabilityConfig{Provider: "openai"})
	_, err := f.Embedder().Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFactoryEmbedderEnabled(t *testing.T) {
	f := testFactory(config.CapabilityConfig{
		OpenAI:    config.OpenAIConfig{APIKey: "k", EmbedModel: "text-embedding-3-small"},
		Embedding: config.EmbeddingConfig{Enabled: true, Provider: "openai"},
	})
	_, ok := f.Embedder().(*OpenAIClient)
	assert.True(t, ok)
}

func TestFactoryNoopCacheNeverStores(t *testing.T) {
	f := testFactory(config.CapabilityConfig{CacheEnabled: false})
	c := f.Cache()
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestFactoryNoopLimiterNeverBlocks(t *testing.T) {
	f := testFactory(config.CapabilityConfig{RateLimitEnabled: false})
	limiter := f.RateLimiter()
	for i := 0; i < 50; i++ {
		release, err := limiter.Acquire(context.Background(), "generate")
		require.NoError(t, err)
		release()
	}
}

func TestFactoryOptionsFromConfig(t *testing.T) {
	f := testFactory(config.CapabilityConfig{MaxTokens: 256, Temperature: 0.2, Timeout: 9 * time.Second})
	opts := f.Options()
	assert.Equal(t, 256, opts.MaxTokens)
	assert.Equal(t, float32(0.2), opts.Temperature)
	assert.Equal(t, 9*time.Second, opts.Timeout)
}

func TestNopIndexSwallowsEverything(t *testing.T) {
	idx := NopIndex{}
	ctx := context.Background()
	assert.NoError(t, idx.Upsert(ctx, 1, []float32{0.1}, nil))
	assert.NoError(t, idx.Delete(ctx, 1))
	matches, err := idx.Search(ctx, []float32{0.1}, 5)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}
