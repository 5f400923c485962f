package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultCohereModel = "command-r-plus"
	cohereCompatURL    = "https://api.cohere.ai/compatibility/v1"
)

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
// Cohere is served through the same client via its compatibility API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

func newOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	name := OpenAI
	if baseURL != "" {
		cfg.BaseURL = baseURL
		if baseURL == cohereCompatURL {
			name = Cohere
		}
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, name: name}
}

// NewOpenAICompatible points the OpenAI client at any compatible base URL.
func NewOpenAICompatible(apiKey, model, baseURL string) *OpenAIProvider {
	return newOpenAIProvider(apiKey, model, baseURL)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stop:        req.Stop,
	})
	if err != nil {
		return "", remoteErr(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", remoteErrf(p.name, "empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
