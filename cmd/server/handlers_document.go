package main

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"docinsight/internal/apperr"
	"docinsight/internal/search"
)

// ========== Document Endpoints ==========

// handleUpload runs the full pipeline on one uploaded file and returns the
// resulting session state.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.session(w, r)

	s.mu.RLock()
	limit := s.cfg.MaxUploadBytes()
	s.mu.RUnlock()

	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			jsonErr(w, fmt.Sprintf("File exceeds the %d MB upload limit", limit>>20), http.StatusRequestEntityTooLarge)
			return
		}
		jsonErr(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		jsonErr(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fh.Size > limit {
		jsonErr(w, fmt.Sprintf("File exceeds the %d MB upload limit", limit>>20), http.StatusRequestEntityTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		jsonErr(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		writeError(w, fmt.Errorf("%w: %s is empty", apperr.ErrInvalidInput, fh.Filename))
		return
	}

	snap, err := s.analyzer.Process(r.Context(), sess, fh.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("upload analyzed",
		zap.String("session", sess.ID),
		zap.String("file", fh.Filename),
		zap.Bool("summary_ok", snap.SummaryError == ""))
	jsonResp(w, snap)
}

// handleSession returns the caller's current state.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResp(w, s.session(w, r).Snapshot())
}

// handleSearch looks up passages of the current document.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.session(w, r)

	q := r.URL.Query().Get("q")
	if q == "" {
		jsonErr(w, "q is required", http.StatusBadRequest)
		return
	}
	limit := search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			jsonErr(w, "limit must be between 1 and 50", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if _, ok := sess.Document(); !ok {
		jsonErr(w, "No document uploaded. Upload a file first.", http.StatusBadRequest)
		return
	}
	hits, err := sess.Search(q, limit)
	if err != nil {
		jsonErr(w, fmt.Sprintf("Search error: %v", err), http.StatusInternalServerError)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	jsonResp(w, map[string]interface{}{
		"query": q,
		"hits":  hits,
	})
}
