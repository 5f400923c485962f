// Package pipeline wires extraction, cleanup, redaction, sentiment,
// summarization and question answering into the two user actions: upload a
// document and ask a question about it.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"docinsight/internal/apperr"
	"docinsight/internal/extractor"
	"docinsight/internal/llm"
	"docinsight/internal/qa"
	"docinsight/internal/search"
	"docinsight/internal/sentiment"
	"docinsight/internal/session"
	"docinsight/internal/summarize"
	"docinsight/internal/textproc"
)

// Stage names a step of document processing, reported through ProgressFunc.
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageRedacting   Stage = "redacting"
	StageSentiment   Stage = "sentiment"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// ProgressFunc receives stage transitions for a session.
type ProgressFunc func(sessionID string, stage Stage)

const defaultMemoTTL = 30 * time.Minute

// Options tunes an Analyzer. Zero values select package defaults.
type Options struct {
	ChunkWords       int
	SummaryMaxTokens int
	AnswerMaxTokens  int
	MemoTTL          time.Duration
	SkipSummary      bool
	Redactor         *textproc.Redactor
	Progress         ProgressFunc
	Logger           *zap.Logger
}

// Analyzer runs the document pipeline against sessions. It is safe for
// concurrent use across sessions.
type Analyzer struct {
	opts     Options
	redactor *textproc.Redactor
	scorer   *sentiment.Scorer
	memo     *cache.Cache
	logger   *zap.Logger

	// mu guards the models and their generation. Summaries are memoized
	// only while the generation they were produced under is current.
	mu         sync.RWMutex
	generation uint64
	summarizer *summarize.Summarizer
	answerer   *qa.Answerer
}

// New builds an Analyzer around provider. A nil provider is allowed; remote
// steps then fail with ErrRemoteCallFailed until SetProvider is called.
func New(provider llm.Provider, opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MemoTTL <= 0 {
		opts.MemoTTL = defaultMemoTTL
	}
	red := opts.Redactor
	if red == nil {
		red = textproc.NewRedactor()
	}
	a := &Analyzer{
		opts:     opts,
		redactor: red,
		scorer:   sentiment.Default(),
		memo:     cache.New(opts.MemoTTL, opts.MemoTTL),
		logger:   opts.Logger,
	}
	a.SetProvider(provider)
	return a
}

// SetProvider swaps the remote model used for summaries and answers and
// forgets summaries produced by the previous one.
func (a *Analyzer) SetProvider(provider llm.Provider) {
	if provider == nil {
		provider = unconfigured{}
	}
	s := summarize.New(provider,
		summarize.WithChunkWords(a.opts.ChunkWords),
		summarize.WithMaxTokens(a.opts.SummaryMaxTokens),
		summarize.WithLogger(a.logger),
	)
	ans := qa.New(provider, a.opts.AnswerMaxTokens)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.summarizer, a.answerer = s, ans
	a.generation++
	for key := range a.memo.Items() {
		if strings.HasPrefix(key, summaryKeyPrefix) {
			a.memo.Delete(key)
		}
	}
}

func (a *Analyzer) models() (*summarize.Summarizer, *qa.Answerer, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summarizer, a.answerer, a.generation
}

func (a *Analyzer) emit(sessionID string, stage Stage) {
	if a.opts.Progress != nil {
		a.opts.Progress(sessionID, stage)
	}
}

// ==================== Upload ====================

// Process extracts, normalizes and redacts data, installs the result as the
// session's document, then derives sentiment and a summary. Errors before
// the document is installed leave the session untouched and are returned.
// Sentiment and summary failures are recorded on the session instead.
func (a *Analyzer) Process(ctx context.Context, sess *session.Session, fileName string, data []byte) (session.Snapshot, error) {
	err := sess.Run(func() error {
		doc, idx, err := a.prepare(sess.ID, fileName, data)
		if err != nil {
			a.emit(sess.ID, StageFailed)
			a.logger.Warn("document rejected",
				zap.String("session", sess.ID),
				zap.String("file", fileName),
				zap.String("kind", apperr.Kind(err)),
				zap.Error(err))
			return err
		}
		sess.SetDocument(doc, idx)

		a.emit(sess.ID, StageSentiment)
		res, serr := a.sentimentFor(doc)
		sess.SetSentiment(res, serr)

		if !a.opts.SkipSummary {
			a.emit(sess.ID, StageSummarizing)
			summary, sumErr := a.summaryFor(ctx, doc)
			sess.SetSummary(summary, sumErr)
			if sumErr != nil {
				a.logger.Warn("summarization failed", zap.String("session", sess.ID), zap.Error(sumErr))
			}
		}

		a.emit(sess.ID, StageDone)
		return nil
	})
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// prepare runs the pure stages: type check, extraction, normalization,
// redaction and passage indexing.
func (a *Analyzer) prepare(sessionID, fileName string, data []byte) (session.Document, *search.Index, error) {
	ft, err := extractor.FileTypeFromName(fileName)
	if err != nil {
		return session.Document{}, nil, err
	}

	a.emit(sessionID, StageExtracting)
	raw, err := extractor.Extract(data, ft)
	if err != nil {
		return session.Document{}, nil, err
	}

	a.emit(sessionID, StageNormalizing)
	text := textproc.Normalize(raw)
	if text == "" {
		return session.Document{}, nil, fmt.Errorf("%w: %s has no text after cleanup", apperr.ErrInvalidInput, fileName)
	}

	a.emit(sessionID, StageRedacting)
	redacted, findings := a.redactor.RedactWithFindings(text)
	for _, f := range findings {
		a.logger.Info("redacted sensitive values",
			zap.String("session", sessionID),
			zap.String("label", f.Label),
			zap.Int("count", f.Count))
	}

	idx, err := search.Build(redacted)
	if err != nil {
		a.logger.Warn("passage index unavailable", zap.String("session", sessionID), zap.Error(err))
		idx = nil
	}

	sum := sha256.Sum256([]byte(redacted))
	doc := session.Document{
		Name:     fileName,
		Size:     int64(len(data)),
		Type:     ft,
		Text:     redacted,
		Hash:     hex.EncodeToString(sum[:]),
		Findings: findings,
		Uploaded: time.Now(),
	}
	a.logger.Info("document processed",
		zap.String("session", sessionID),
		zap.String("file", fileName),
		zap.String("type", string(ft)),
		zap.Int("bytes", len(data)),
		zap.Int("words", len(strings.Fields(redacted))))
	return doc, idx, nil
}

// ==================== Memoized derivations ====================

const (
	summaryKeyPrefix   = "summary:"
	sentimentKeyPrefix = "sentiment:"
)

func (a *Analyzer) sentimentFor(doc session.Document) (*sentiment.Result, error) {
	key := sentimentKeyPrefix + doc.Hash
	if v, ok := a.memo.Get(key); ok {
		r := v.(sentiment.Result)
		return &r, nil
	}
	r, err := a.scorer.Score(doc.Text)
	if err != nil {
		return nil, err
	}
	a.memo.SetDefault(key, r)
	return &r, nil
}

func (a *Analyzer) summaryFor(ctx context.Context, doc session.Document) (string, error) {
	key := summaryKeyPrefix + doc.Hash
	if v, ok := a.memo.Get(key); ok {
		return v.(string), nil
	}
	s, _, gen := a.models()
	summary, err := s.Summarize(ctx, doc.Text)
	if err != nil {
		return "", err
	}
	a.mu.RLock()
	if a.generation == gen {
		a.memo.SetDefault(key, summary)
	}
	a.mu.RUnlock()
	return summary, nil
}

// ==================== Questions ====================

// Ask answers question against the session's current document. On success
// the exchange is appended to the history; on failure the history is
// unchanged.
func (a *Analyzer) Ask(ctx context.Context, sess *session.Session, question string) (session.Exchange, error) {
	var ex session.Exchange
	err := sess.Run(func() error {
		question = strings.TrimSpace(question)
		if question == "" {
			return fmt.Errorf("%w: question is empty", apperr.ErrInvalidInput)
		}
		doc, ok := sess.Document()
		if !ok {
			return fmt.Errorf("%w: upload a document before asking questions", apperr.ErrInvalidInput)
		}

		_, ans, _ := a.models()
		answer, err := ans.Answer(ctx, doc.Text, question)
		if err != nil {
			a.logger.Warn("question failed", zap.String("session", sess.ID), zap.Error(err))
			return err
		}
		ex = sess.AddExchange(question, answer)
		return nil
	})
	return ex, err
}

// ==================== Unconfigured provider ====================

type unconfigured struct{}

func (unconfigured) Complete(context.Context, llm.Request) (string, error) {
	return "", fmt.Errorf("%w: no language model provider configured", apperr.ErrRemoteCallFailed)
}
