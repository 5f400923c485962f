// Package sentiment scores the overall polarity of a document with the VADER
// lexicon and maps it to a tone and a three-band gauge.
package sentiment

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonreiter/govader"

	"docinsight/internal/apperr"
)

// Tone is the coarse label derived from a polarity score.
type Tone string

const (
	Positive Tone = "Positive"
	Neutral  Tone = "Neutral"
	Negative Tone = "Negative"
)

// ToneThreshold is the exclusive bound on either side of zero beyond which
// a document stops being Neutral.
const ToneThreshold = 0.1

// Result is the outcome of scoring one document.
type Result struct {
	Polarity float64 `json:"polarity"`
	Tone     Tone    `json:"tone"`
}

// ToneFor classifies polarity: > 0.1 is Positive, < -0.1 is Negative,
// anything else (including exactly ±0.1) is Neutral.
func ToneFor(polarity float64) Tone {
	switch {
	case polarity > ToneThreshold:
		return Positive
	case polarity < -ToneThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Scorer wraps a VADER analyzer. The lexicon is loaded once and shared.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var (
	defaultOnce   sync.Once
	defaultScorer *Scorer
)

// NewScorer builds a Scorer with its own analyzer instance.
func NewScorer() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Default returns the process-wide Scorer, creating it on first use.
func Default() *Scorer {
	defaultOnce.Do(func() { defaultScorer = NewScorer() })
	return defaultScorer
}

// Score computes the compound polarity of text, which lies in [-1, 1].
func (s *Scorer) Score(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("sentiment: %w: empty text", apperr.ErrInvalidInput)
	}
	p := clamp(s.analyzer.PolarityScores(text).Compound)
	return Result{Polarity: p, Tone: ToneFor(p)}, nil
}

// Score scores text with the Default scorer.
func Score(text string) (Result, error) {
	return Default().Score(text)
}

func clamp(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < -1 {
		return -1
	}
	return p
}
