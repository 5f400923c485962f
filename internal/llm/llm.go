// Package llm wraps the hosted language models behind a single
// prompt-in, text-out call shape.
package llm

import (
	"context"
	"fmt"
	"strings"

	"docinsight/internal/apperr"
)

// Request is one completion call: a prompt, an output token budget, a
// sampling temperature and optional stop sequences.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Provider is a remote completion capability. Implementations return the
// raw completion text; errors wrap apperr.ErrRemoteCallFailed.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Names of the supported providers, as accepted by NewProvider.
const (
	OpenAI      = "openai"
	Cohere      = "cohere"
	Anthropic   = "anthropic"
	HuggingFace = "huggingface"
)

// ProviderNames lists the accepted provider names.
var ProviderNames = []string{OpenAI, Cohere, Anthropic, HuggingFace}

// NewProvider creates the provider for providerName. An empty model picks
// the provider's default.
func NewProvider(providerName, apiKey, model string) (Provider, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	switch providerName {
	case OpenAI, "":
		return newOpenAIProvider(apiKey, model, ""), nil
	case Cohere:
		if model == "" {
			model = defaultCohereModel
		}
		return newOpenAIProvider(apiKey, model, cohereCompatURL), nil
	case Anthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		return &AnthropicProvider{apiKey: apiKey, model: model, baseURL: anthropicURL}, nil
	case HuggingFace:
		if model == "" {
			model = defaultHuggingFaceModel
		}
		return &HuggingFaceProvider{apiKey: apiKey, model: model, baseURL: huggingFaceURL}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", providerName)
	}
}

func remoteErr(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrRemoteCallFailed, provider, err)
}

func remoteErrf(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperr.ErrRemoteCallFailed, provider, fmt.Sprintf(format, args...))
}
