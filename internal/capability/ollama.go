package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient adapts a local ollama daemon to the Generator and Embedder
// ports.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllama builds a client for the daemon at host (e.g.
// "http://127.0.0.1:11434"). An empty host falls back to the OLLAMA_HOST
// environment convention.
func NewOllama(host, model string) (*OllamaClient, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("capability: ollama client: %w", err)
		}
		return &OllamaClient{client: client, model: model}, nil
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("capability: ollama host %q: %w", host, err)
	}
	return &OllamaClient{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

// Generate runs a non-streaming completion and returns the accumulated
// response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("capability: ollama generate: %w", err)
	}
	return sb.String(), nil
}

// Embed returns the embedding vector for text, converted to float32 to
// match the Embedder port.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("capability: ollama embeddings: %w", err)
	}
	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

var (
	_ Generator = (*OllamaClient)(nil)
	_ Embedder  = (*OllamaClient)(nil)
)
