package main

import (
	"encoding/json"
	"net/http"
	"time"
)

// ========== Query Endpoints ==========

type QueryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.session(w, r)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	ex, err := s.analyzer.Ask(r.Context(), sess, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResp(w, map[string]interface{}{
		"question":     ex.Question,
		"answer":       ex.Answer,
		"time_seconds": time.Since(start).Seconds(),
		"history":      sess.Snapshot().History,
	})
}

// handleClearHistory empties the Q&A history without touching the document.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.session(w, r)
	_ = sess.Run(func() error {
		sess.ClearHistory()
		return nil
	})
	jsonResp(w, sess.Snapshot())
}
