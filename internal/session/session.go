// Package session holds the per-visitor analysis state: the current
// document, its derived summary and sentiment, and the Q&A history.
package session

import (
	"fmt"
	"sync"
	"time"

	"docinsight/internal/extractor"
	"docinsight/internal/search"
	"docinsight/internal/sentiment"
	"docinsight/internal/textproc"
)

// ==================== Document ====================

// Document is the redacted text of one uploaded file plus its metadata.
// Once set it is never mutated; a new upload replaces it wholesale.
type Document struct {
	Name     string             `json:"name"`
	Size     int64              `json:"size"`
	Type     extractor.FileType `json:"type"`
	Text     string             `json:"text"`
	Hash     string             `json:"hash"`
	Findings []textproc.Finding `json:"findings,omitempty"`
	Uploaded time.Time          `json:"uploaded_at"`
}

// InfoLine renders "name (size)" for display.
func (d Document) InfoLine() string {
	return fmt.Sprintf("%s (%s)", d.Name, HumanSize(d.Size))
}

// HumanSize formats a byte count with binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ==================== Q&A ====================

// Exchange is one answered question.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// ==================== Session ====================

// Session is the state of one interactive visitor. Field access goes through
// methods guarded by mu; Run serializes whole user actions.
type Session struct {
	ID        string
	CreatedAt time.Time

	run sync.Mutex
	mu  sync.RWMutex

	doc          *Document
	passages     *search.Index
	summary      string
	summaryErr   error
	sentiment    *sentiment.Result
	sentimentErr error
	current      *Exchange
	history      []Exchange
	updatedAt    time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, updatedAt: now}
}

// Run executes fn while holding the session's action lock, so uploads and
// questions on one session never interleave.
func (s *Session) Run(fn func() error) error {
	s.run.Lock()
	defer s.run.Unlock()
	return fn()
}

// SetDocument installs a new document and discards every value derived from
// the previous one, including the Q&A history.
func (s *Session) SetDocument(doc Document, passages *search.Index) {
	s.mu.Lock()
	old := s.passages
	s.doc = &doc
	s.passages = passages
	s.summary, s.summaryErr = "", nil
	s.sentiment, s.sentimentErr = nil, nil
	s.current = nil
	s.history = nil
	s.touch()
	s.mu.Unlock()

	if old != nil && old != passages {
		_ = old.Close()
	}
}

// Document returns the current document, if any.
func (s *Session) Document() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return Document{}, false
	}
	return *s.doc, true
}

// SetSummary records the summarization outcome for the current document.
func (s *Session) SetSummary(summary string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary, s.summaryErr = summary, err
	s.touch()
}

// SetSentiment records the sentiment outcome for the current document.
func (s *Session) SetSentiment(r *sentiment.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiment, s.sentimentErr = r, err
	s.touch()
}

// AddExchange appends a Q&A pair to the history and makes it current.
func (s *Session) AddExchange(question, answer string) Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Exchange{Question: question, Answer: answer, AskedAt: time.Now()}
	s.history = append(s.history, e)
	s.current = &e
	s.touch()
	return e
}

// ClearHistory empties the Q&A history and the current question/answer.
// Document, summary and sentiment are kept.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.current = nil
	s.touch()
}

// Search looks up passages of the current document.
func (s *Session) Search(query string, limit int) ([]search.Hit, error) {
	s.mu.RLock()
	idx := s.passages
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}
	return idx.Search(query, limit)
}

func (s *Session) close() {
	s.mu.Lock()
	idx := s.passages
	s.passages = nil
	s.mu.Unlock()
	if idx != nil {
		_ = idx.Close()
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// ==================== Snapshot ====================

// Snapshot is an immutable copy of a session's visible state.
type Snapshot struct {
	SessionID      string             `json:"session_id"`
	HasDocument    bool               `json:"has_document"`
	FileName       string             `json:"file_name,omitempty"`
	FileSize       int64              `json:"file_size,omitempty"`
	FileType       extractor.FileType `json:"file_type,omitempty"`
	InfoLine       string             `json:"info_line,omitempty"`
	Text           string             `json:"text,omitempty"`
	Findings       []textproc.Finding `json:"findings,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	SummaryError   string             `json:"summary_error,omitempty"`
	Sentiment      *sentiment.Result  `json:"sentiment,omitempty"`
	Gauge          *sentiment.Gauge   `json:"gauge,omitempty"`
	SentimentError string             `json:"sentiment_error,omitempty"`
	Current        *Exchange          `json:"current,omitempty"`
	History        []Exchange         `json:"history"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Snapshot copies the session state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID: s.ID,
		History:   make([]Exchange, len(s.history)),
		UpdatedAt: s.updatedAt,
	}
	copy(snap.History, s.history)

	if s.doc != nil {
		snap.HasDocument = true
		snap.FileName = s.doc.Name
		snap.FileSize = s.doc.Size
		snap.FileType = s.doc.Type
		snap.InfoLine = s.doc.InfoLine()
		snap.Text = s.doc.Text
		snap.Findings = append([]textproc.Finding(nil), s.doc.Findings...)
	}
	snap.Summary = s.summary
	if s.summaryErr != nil {
		snap.SummaryError = s.summaryErr.Error()
	}
	if s.sentiment != nil {
		r := *s.sentiment
		g := sentiment.NewGauge(r)
		snap.Sentiment = &r
		snap.Gauge = &g
	}
	if s.sentimentErr != nil {
		snap.SentimentError = s.sentimentErr.Error()
	}
	if s.current != nil {
		c := *s.current
		snap.Current = &c
	}
	return snap
}
