// Package qa answers free-text questions about a document by sending the
// whole document as context to the remote model.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docinsight/internal/apperr"
	"docinsight/internal/llm"
)

const (
	// DefaultMaxTokens caps the length of an answer.
	DefaultMaxTokens = 100

	// Temperature is the sampling temperature for every answer.
	Temperature = 0.7
)

// BuildPrompt renders the fixed question-answering template.
func BuildPrompt(context, question string) string {
	return "Context: " + context + "\n\nQuestion: " + question + "\n\nAnswer:"
}

// Answerer asks a Provider one question at a time. It keeps no state.
type Answerer struct {
	provider  llm.Provider
	maxTokens int
}

// New creates an Answerer. maxTokens <= 0 selects DefaultMaxTokens.
func New(provider llm.Provider, maxTokens int) *Answerer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Answerer{provider: provider, maxTokens: maxTokens}
}

// Answer returns the model's trimmed answer to question given docContext.
func (a *Answerer) Answer(ctx context.Context, docContext, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("answer: %w: question is empty", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(docContext) == "" {
		return "", fmt.Errorf("answer: %w: no document context", apperr.ErrInvalidInput)
	}

	out, err := a.provider.Complete(ctx, llm.Request{
		Prompt:      BuildPrompt(docContext, question),
		MaxTokens:   a.maxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrRemoteCallFailed) {
			return "", fmt.Errorf("answer: %w", err)
		}
		return "", fmt.Errorf("answer: %w: %w", apperr.ErrRemoteCallFailed, err)
	}
	return strings.TrimSpace(out), nil
}
