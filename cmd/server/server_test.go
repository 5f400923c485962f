package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight/internal/apperr"
	"docinsight/internal/config"
	"docinsight/internal/llm"
)

type fakeLLM struct {
	mu  sync.Mutex
	err error
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if strings.HasPrefix(req.Prompt, "Summarize") {
		return "Short summary.", nil
	}
	return "Blue.", nil
}

func (f *fakeLLM) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func testServer(t *testing.T, p llm.Provider) *Server {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string {
		if k == "DATA_DIR" {
			return t.TempDir()
		}
		return ""
	})
	require.NoError(t, err)
	settings, err := config.NewSettingsStore(cfg.DataDir, "test")
	require.NoError(t, err)
	return newServer(cfg, settings, p, nil)
}

func uploadRequest(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ========== Upload ==========

func TestUpload_AnalyzesDocument(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()

	rec := do(h, uploadRequest(t, "note.txt", []byte("My SSN is 123-45-6789 and I love this product.")), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Contains(t, body["text"], "[REDACTED SSN]")
	assert.NotContains(t, body["text"], "123-45-6789")
	assert.Equal(t, "Short summary.", body["summary"])
	assert.Equal(t, "Positive", body["sentiment"].(map[string]interface{})["tone"])
	assert.Equal(t, "Tone: Positive", body["gauge"].(map[string]interface{})["title"])
	assert.Contains(t, body["info_line"], "note.txt")

	assert.NotEmpty(t, rec.Header().Get(sessionHeader))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
}

func TestUpload_ErrorMapping(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()

	rec := do(h, uploadRequest(t, "table.csv", []byte("a,b")), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UnsupportedFormat", decode(t, rec)["kind"])

	rec = do(h, uploadRequest(t, "broken.docx", []byte("not a zip")), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ExtractionFailed", decode(t, rec)["kind"])

	rec = do(h, uploadRequest(t, "empty.txt", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidInput", decode(t, rec)["kind"])
}

func TestUpload_SummaryFailureStillReturnsState(t *testing.T) {
	p := &fakeLLM{err: fmt.Errorf("%w: upstream 503", apperr.ErrRemoteCallFailed)}
	h := testServer(t, p).routes()

	rec := do(h, uploadRequest(t, "note.txt", []byte("What a wonderful day.")), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["summary_error"])
	assert.NotNil(t, body["sentiment"])
}

func TestUpload_MissingFileAndMethod(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, do(h, req, "").Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, httptest.NewRequest(http.MethodGet, "/api/upload", nil), "").Code)
}

func TestUpload_TooLarge(t *testing.T) {
	s := testServer(t, &fakeLLM{})
	s.cfg.MaxUploadMB = 1
	h := s.routes()

	rec := do(h, uploadRequest(t, "big.txt", bytes.Repeat([]byte("a "), 3<<20)), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ========== Query & history ==========

func upload(t *testing.T, h http.Handler, name, text string) string {
	t.Helper()
	rec := do(h, uploadRequest(t, name, []byte(text)), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Header().Get(sessionHeader)
}

func ask(h http.Handler, sessionID, question string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(QueryRequest{Question: question})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(h, req, sessionID)
}

func TestQuery_AnswersAndClears(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()
	id := upload(t, h, "sky.txt", "The sky is blue.")

	rec := ask(h, id, "What color is the sky?")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Blue.", body["answer"])
	assert.Len(t, body["history"], 1)

	rec = do(h, httptest.NewRequest(http.MethodPost, "/api/history/clear", nil), id)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode(t, rec)
	assert.Empty(t, state["history"])
	assert.Nil(t, state["current"])
	assert.Equal(t, "Short summary.", state["summary"])
	assert.Equal(t, "The sky is blue.", state["text"])
}

func TestQuery_Errors(t *testing.T) {
	p := &fakeLLM{}
	h := testServer(t, p).routes()

	rec := ask(h, "", "Anything?")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no document yet")

	id := upload(t, h, "a.txt", "Some content.")
	assert.Equal(t, http.StatusBadRequest, ask(h, id, "  ").Code)

	p.fail(errors.New("timeout"))
	rec = ask(h, id, "Why?")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "RemoteCallFailed", decode(t, rec)["kind"])

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, do(h, req, id).Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()
	a := upload(t, h, "a.txt", "Document A.")

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/session", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	other := decode(t, rec)
	assert.NotEqual(t, a, other["session_id"])
	assert.Equal(t, false, other["has_document"])
}

// ========== Search ==========

func TestSearch(t *testing.T) {
	h := testServer(t, &fakeLLM{}).routes()

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/search?q=invoice", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no document")

	id := upload(t, h, "inv.txt", "The invoice total is due next week. Payment terms are net thirty.")
	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/search?q=invoice&limit=3", nil), id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hits := decode(t, rec)["hits"].([]interface{})
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].(map[string]interface{})["text"], "invoice total")

	assert.Equal(t, http.StatusBadRequest, do(h, httptest.NewRequest(http.MethodGet, "/api/search", nil), id).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, httptest.NewRequest(http.MethodGet, "/api/search?q=x&limit=0", nil), id).Code)
}

// ========== Settings ==========

func TestSettings_UpdateAndMask(t *testing.T) {
	s := testServer(t, nil)
	h := s.routes()

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/settings", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["configured"])

	body := `{"provider":"anthropic","model":"claude-3-5-haiku-latest","keys":{"anthropic":"sk-ant-abcdef123456"}}`
	rec = do(h, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body)), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec)
	assert.Equal(t, "anthropic", view["provider"])
	assert.Equal(t, true, view["configured"])
	assert.Equal(t, "sk-a...3456", view["keys"].(map[string]interface{})["anthropic"])

	saved, err := s.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abcdef123456", saved.Keys["anthropic"])

	// Echoing the masked value back keeps the stored key.
	body = `{"provider":"anthropic","keys":{"anthropic":"sk-a...3456"}}`
	rec = do(h, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sk-ant-abcdef123456", s.cfg.APIKey("anthropic"))
}

func TestSettings_Invalid(t *testing.T) {
	h := testServer(t, nil).routes()
	for _, body := range []string{`{"provider":"gemini"}`, `{"keys":{"gemini":"k"}}`, `nope`} {
		rec := do(h, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body)), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestProvidersAndHealth(t *testing.T) {
	h := testServer(t, nil).routes()
	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/providers", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["providers"], len(llm.ProviderNames))

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/health", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestIndexServed(t *testing.T) {
	h := testServer(t, nil).routes()
	rec := do(h, httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Clear history")
}

// ========== Middleware & errors ==========

func TestRecoverMiddleware(t *testing.T) {
	s := testServer(t, nil)
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		apperr.ErrUnsupportedFormat:                              http.StatusBadRequest,
		apperr.ErrInvalidInput:                                   http.StatusBadRequest,
		apperr.ErrExtractionFailed:                               http.StatusUnprocessableEntity,
		apperr.ErrSummarizationFailed:                            http.StatusBadGateway,
		fmt.Errorf("wrap: %w", apperr.ErrRemoteCallFailed):       http.StatusBadGateway,
		errors.New("something else"):                             http.StatusInternalServerError,
		fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 1024}): http.StatusRequestEntityTooLarge,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

// ========== Events ==========

func TestEvents_StreamsProgress(t *testing.T) {
	s := testServer(t, &fakeLLM{})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	sess := s.sessions.Create()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	header := http.Header{"Cookie": {sessionCookie + "=" + sess.ID}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.events.subscribers(sess.ID) == 1 }, time.Second, 10*time.Millisecond)

	req := uploadRequest(t, "note.txt", []byte("Plain words here."))
	rec := do(s.routes(), req, sess.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var stages []string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var ev progressEvent
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, sess.ID, ev.SessionID)
		stages = append(stages, ev.Stage)
		if ev.Stage == "done" {
			break
		}
	}
	assert.Equal(t, []string{"extracting", "normalizing", "redacting", "sentiment", "summarizing", "done"}, stages)
}

func TestEvents_UnknownSession(t *testing.T) {
	h := testServer(t, nil).routes()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "missing"})
	rec := do(h, req, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents_QueryMustMatchCaller(t *testing.T) {
	s := testServer(t, nil)
	h := s.routes()
	victim := s.sessions.Create()
	caller := s.sessions.Create()

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/events?session="+victim.ID, nil), "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "query alone")

	req := httptest.NewRequest(http.MethodGet, "/api/events?session="+victim.ID, nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: caller.ID})
	rec = do(h, req, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "query names another session")
	assert.Zero(t, s.events.subscribers(victim.ID))
}

func TestEvents_RejectsCrossOriginHandshake(t *testing.T) {
	s := testServer(t, nil)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	sess := s.sessions.Create()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	header := http.Header{
		"Cookie": {sessionCookie + "=" + sess.ID},
		"Origin": {"http://elsewhere.example"},
	}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
