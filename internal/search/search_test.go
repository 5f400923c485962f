package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filler(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestSplitPassages(t *testing.T) {
	words := make([]string, 450)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	ps := SplitPassages(strings.Join(words, " "), 200, 40)

	require.Len(t, ps, 3)
	assert.Equal(t, 0, ps[0].Start)
	assert.Equal(t, 160, ps[1].Start)
	assert.Equal(t, 320, ps[2].Start)
	assert.True(t, strings.HasPrefix(ps[1].Text, "w160 "))
	assert.True(t, strings.HasSuffix(ps[2].Text, " w449"))
	assert.Equal(t, 2, ps[2].Index)
}

func TestSplitPassages_Short(t *testing.T) {
	ps := SplitPassages("just a few words", 200, 40)
	require.Len(t, ps, 1)
	assert.Equal(t, "just a few words", ps[0].Text)
	assert.Empty(t, SplitPassages("  ", 200, 40))
}

func TestIndexSearch(t *testing.T) {
	text := filler(200, "alpha") + " " + filler(200, "bravo") + " quarterly revenue grew " + filler(200, "charlie")
	idx, err := Build(text)
	require.NoError(t, err)
	defer idx.Close()

	assert.Greater(t, idx.Len(), 1)

	hits, err := idx.Search("revenue", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Text, "quarterly revenue grew")
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestIndexSearch_NoMatchAndBlank(t *testing.T) {
	idx, err := Build("the quick brown fox")
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search("zeppelin", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search("   ", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestBuild_EmptyText(t *testing.T) {
	idx, err := Build("")
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, 0, idx.Len())
	hits, err := idx.Search("anything", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
}
