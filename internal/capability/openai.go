package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts an OpenAI-compatible endpoint to the Generator and
// Embedder ports. Any compatible gateway works through BaseURL.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	embedModel string
}

// NewOpenAI builds a client for the given endpoint. model drives text
// generation, embedModel the embedding calls.
func NewOpenAI(apiKey, baseURL, model, embedModel string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		embedModel: embedModel,
	}
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("capability: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("capability: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("capability: embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("capability: embeddings returned no data")
	}
	return resp.Data[0].Embedding, nil
}

var (
	_ Generator = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)
