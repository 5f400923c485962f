// Command analyze runs the document pipeline on one local file and prints
// the redacted text, sentiment, summary and any requested answers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"docinsight/internal/apperr"
	"docinsight/internal/config"
	"docinsight/internal/llm"
	"docinsight/internal/logger"
	"docinsight/internal/pipeline"
	"docinsight/internal/session"
)

// questions collects repeated -q flags.
type questions []string

func (q *questions) String() string     { return strings.Join(*q, "; ") }
func (q *questions) Set(v string) error { *q = append(*q, v); return nil }

type providerFactory func(cfg *config.Config) (llm.Provider, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		if kind := apperr.Kind(err); kind != "" && kind != "Internal" {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newProvider providerFactory) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path      = fs.String("file", "", "document to analyze (pdf, txt, docx, xls, xlsx)")
		noSummary = fs.Bool("no-summary", false, "skip the remote summarization step")
		asJSON    = fs.Bool("json", false, "print the final state as JSON")
		verbose   = fs.Bool("v", false, "log pipeline progress to stderr")
		asks      questions
	)
	fs.Var(&asks, "q", "question to ask about the document (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		fs.Usage()
		return errors.New("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Console: stderr})
	if err != nil {
		return err
	}
	defer log.Sync()

	var provider llm.Provider
	if !*noSummary || len(asks) > 0 {
		if newProvider == nil {
			newProvider = (*config.Config).NewProvider
		}
		provider, err = newProvider(cfg)
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read %s: %w", *path, err)
	}

	start := time.Now()
	analyzer := pipeline.New(provider, pipeline.Options{
		ChunkWords:       cfg.ChunkWords,
		SummaryMaxTokens: cfg.SummaryMaxTokens,
		AnswerMaxTokens:  cfg.AnswerMaxTokens,
		SkipSummary:      *noSummary,
		Logger:           log,
		Progress: func(_ string, stage pipeline.Stage) {
			log.Debug("stage", zap.String("stage", string(stage)), zap.Duration("elapsed", time.Since(start)))
		},
	})
	sess := session.NewStore(time.Hour).Create()

	if _, err := analyzer.Process(ctx, sess, baseName(*path), data); err != nil {
		return err
	}
	for _, q := range asks {
		if _, err := analyzer.Ask(ctx, sess, q); err != nil {
			return fmt.Errorf("question %q: %w", q, err)
		}
	}

	snap := sess.Snapshot()
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printReport(stdout, snap)
	return nil
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func printReport(w io.Writer, s session.Snapshot) {
	fmt.Fprintf(w, "File: %s\n", s.InfoLine)
	for _, f := range s.Findings {
		fmt.Fprintf(w, "Redacted: %d x %s\n", f.Count, f.Label)
	}
	if s.Sentiment != nil {
		fmt.Fprintf(w, "Sentiment: %s (%.3f)\n", s.Sentiment.Tone, s.Sentiment.Polarity)
	} else if s.SentimentError != "" {
		fmt.Fprintf(w, "Sentiment: unavailable (%s)\n", s.SentimentError)
	}
	switch {
	case s.Summary != "":
		fmt.Fprintf(w, "\nSummary:\n%s\n", s.Summary)
	case s.SummaryError != "":
		fmt.Fprintf(w, "\nSummary: unavailable (%s)\n", s.SummaryError)
	}
	for i, e := range s.History {
		fmt.Fprintf(w, "\nQ%d: %s\nA%d: %s\n", i+1, e.Question, i+1, e.Answer)
	}
	fmt.Fprintf(w, "\nText:\n%s\n", s.Text)
}
