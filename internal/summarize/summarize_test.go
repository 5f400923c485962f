package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight/internal/apperr"
	"docinsight/internal/llm"
)

// fakeProvider records every request and answers with a numbered summary.
type fakeProvider struct {
	mu       sync.Mutex
	requests []llm.Request
	failOn   int // 1-based call number that fails; 0 never fails
}

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if n == f.failOn {
		return "", fmt.Errorf("%w: fake outage", apperr.ErrRemoteCallFailed)
	}
	return fmt.Sprintf("  summary-%d  ", n), nil
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

// ========== SplitWords ==========

func TestSplitWords(t *testing.T) {
	chunks := SplitWords(words(7000), 3000)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 3000)
	assert.Len(t, strings.Fields(chunks[1]), 3000)
	assert.Len(t, strings.Fields(chunks[2]), 1000)
	assert.True(t, strings.HasPrefix(chunks[1], "w3000 "))
}

func TestSplitWords_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, []string{"a b", "c"}, SplitWords(" a\n\tb   c ", 2))
}

func TestSplitWords_Empty(t *testing.T) {
	assert.Empty(t, SplitWords("   ", 10))
}

// ========== Summarize ==========

func TestSummarize_MultiChunkMakesReductionCall(t *testing.T) {
	fp := &fakeProvider{}
	got, err := New(fp).Summarize(context.Background(), words(7000))
	require.NoError(t, err)

	require.Len(t, fp.requests, 4)
	assert.Equal(t, "summary-4", got)

	final := fp.requests[3]
	assert.Equal(t, "Summarize the following document concisely:\n\nsummary-1 summary-2 summary-3", final.Prompt)
	for _, req := range fp.requests {
		assert.Equal(t, 300, req.MaxTokens)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, []string{"--"}, req.Stop)
	}
}

func TestSummarize_SingleChunkMakesOneCall(t *testing.T) {
	fp := &fakeProvider{}
	got, err := New(fp).Summarize(context.Background(), words(2000))
	require.NoError(t, err)
	require.Len(t, fp.requests, 1)
	assert.Equal(t, "summary-1", got)
	assert.True(t, strings.HasPrefix(fp.requests[0].Prompt, "Summarize the following document concisely:\n\nw0 w1 "))
}

func TestSummarize_Options(t *testing.T) {
	fp := &fakeProvider{}
	_, err := New(fp, WithChunkWords(10), WithMaxTokens(50)).Summarize(context.Background(), words(25))
	require.NoError(t, err)
	require.Len(t, fp.requests, 4)
	assert.Equal(t, 50, fp.requests[0].MaxTokens)
}

func TestSummarize_ChunkFailureAborts(t *testing.T) {
	fp := &fakeProvider{failOn: 2}
	got, err := New(fp).Summarize(context.Background(), words(7000))
	assert.Empty(t, got)
	require.ErrorIs(t, err, apperr.ErrSummarizationFailed)
	assert.ErrorIs(t, err, apperr.ErrRemoteCallFailed)
	assert.Len(t, fp.requests, 2, "no calls after the failing chunk")
}

func TestSummarize_ReductionFailureAborts(t *testing.T) {
	fp := &fakeProvider{failOn: 3}
	_, err := New(fp).Summarize(context.Background(), words(4000))
	assert.ErrorIs(t, err, apperr.ErrSummarizationFailed)
}

func TestSummarize_EmptyText(t *testing.T) {
	fp := &fakeProvider{}
	_, err := New(fp).Summarize(context.Background(), " ")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Empty(t, fp.requests)
}
