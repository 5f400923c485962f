// Package summarize produces a document summary by summarizing fixed-size
// word chunks and, when there is more than one, summarizing their
// concatenation once more.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docinsight/internal/apperr"
	"docinsight/internal/llm"
)

const (
	// DefaultChunkWords is the number of words sent per summarization call.
	DefaultChunkWords = 3000

	// DefaultMaxTokens caps the length of each chunk summary.
	DefaultMaxTokens = 300

	// Temperature and StopSequence are fixed for every summarization call.
	Temperature  = 0.7
	StopSequence = "--"

	promptTemplate = "Summarize the following document concisely:\n\n%s"
)

// Summarizer runs chunk-then-reduce summarization against a Provider.
type Summarizer struct {
	provider   llm.Provider
	chunkWords int
	maxTokens  int
	logger     *zap.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithChunkWords sets the maximum number of words per chunk.
func WithChunkWords(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.chunkWords = n
		}
	}
}

// WithMaxTokens sets the output token budget of each call.
func WithMaxTokens(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Summarizer with the default chunk size and token budget.
func New(provider llm.Provider, opts ...Option) *Summarizer {
	s := &Summarizer{
		provider:   provider,
		chunkWords: DefaultChunkWords,
		maxTokens:  DefaultMaxTokens,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SplitWords splits text on whitespace and groups the words into ordered
// chunks of at most size words; only the last chunk may be shorter.
func SplitWords(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// Summarize returns the summary of text. Any failed call aborts the whole
// operation with ErrSummarizationFailed; no partial summary is returned.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	chunks := SplitWords(text, s.chunkWords)
	if len(chunks) == 0 {
		return "", fmt.Errorf("summarize: %w: empty text", apperr.ErrInvalidInput)
	}

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.summarizeOnce(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("%w: chunk %d of %d: %w", apperr.ErrSummarizationFailed, i+1, len(chunks), err)
		}
		partials = append(partials, out)
	}
	combined := strings.Join(partials, " ")

	s.logger.Debug("chunk summaries complete", zap.Int("chunks", len(chunks)))
	if len(chunks) == 1 {
		return combined, nil
	}

	final, err := s.summarizeOnce(ctx, combined)
	if err != nil {
		return "", fmt.Errorf("%w: final reduction: %w", apperr.ErrSummarizationFailed, err)
	}
	return final, nil
}

func (s *Summarizer) summarizeOnce(ctx context.Context, text string) (string, error) {
	out, err := s.provider.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(promptTemplate, text),
		MaxTokens:   s.maxTokens,
		Temperature: Temperature,
		Stop:        []string{StopSequence},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
