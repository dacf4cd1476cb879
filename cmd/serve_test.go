package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/store"
)

type runCall struct {
	query      string
	filePath   string
	userID     string
	documentID string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	ran   chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan struct{}, 16)}
}

func (f *fakeRunner) Run(ctx context.Context, query, filePath, userID, documentID string) (*model.AnalysisRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{query, filePath, userID, documentID})
	f.mu.Unlock()
	f.ran <- struct{}{}
	return &model.AnalysisRecord{ID: "analysis-1", DocumentID: documentID}, nil
}

func (f *fakeRunner) waitForRun(t *testing.T) runCall {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline run was never dispatched")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestServer(t *testing.T) (*httptest.Server, *Env, *fakeRunner) {
	t.Helper()

	cfg = &config.Config{
		Extract: config.ExtractConfig{
			MaxFileSize:       1024 * 1024,
			MinContentChars:   50,
			AllowedExtensions: []string{".pdf", ".docx", ".txt"},
		},
		Upload: config.UploadConfig{Dir: t.TempDir()},
		Server: config.ServerConfig{RateLimitRPS: 100, RateLimitBurst: 100},
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	runner := newFakeRunner()
	env := &Env{Store: st, Pipeline: runner}

	srv := httptest.NewServer(newRouter(context.Background(), env, newUserLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)))
	t.Cleanup(srv.Close)
	return srv, env, runner
}

func uploadFile(t *testing.T, srv *httptest.Server, filename, content, userID string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if userID != "" {
		require.NoError(t, mw.WriteField("user_id", userID))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/documents/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "ok", got["status"])
}

func TestUploadDocument(t *testing.T) {
	srv, env, _ := newTestServer(t)

	resp := uploadFile(t, srv, "Q2 Report.pdf", "fake pdf bytes", "alice")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc := decodeJSON[model.Document](t, resp)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Q2 Report.pdf", doc.OriginalFilename)
	assert.True(t, strings.HasSuffix(doc.Filename, ".pdf"))
	assert.Equal(t, "alice", doc.UploadedBy)
	assert.Equal(t, model.DocumentStatusUploaded, doc.Status)

	stored, err := env.Store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.FilePath, stored.FilePath)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := uploadFile(t, srv, "malware.exe", "MZ", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeDispatchesRun(t *testing.T) {
	srv, env, runner := newTestServer(t)

	up := uploadFile(t, srv, "report.txt", "lots of text", "alice")
	doc := decodeJSON[model.Document](t, up)

	resp, err := http.Post(srv.URL+"/documents/"+doc.ID+"/analyze", "application/json",
		strings.NewReader(`{"query":"assess liquidity","user_id":"alice"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	got := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "queued", got["status"])
	assert.Equal(t, doc.ID, got["document_id"])

	call := runner.waitForRun(t)
	assert.Equal(t, "assess liquidity", call.query)
	assert.Equal(t, doc.ID, call.documentID)
	assert.Equal(t, "alice", call.userID)

	stored, err := env.Store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusProcessing, stored.Status)
}

func TestAnalyzeUnknownDocument(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/documents/nope/analyze", "application/json",
		strings.NewReader(`{"query":"q"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyzeRejectsDocumentInProcessing(t *testing.T) {
	srv, env, _ := newTestServer(t)

	up := uploadFile(t, srv, "report.txt", "text", "")
	doc := decodeJSON[model.Document](t, up)
	require.NoError(t, env.Store.UpdateDocumentStatus(context.Background(), doc.ID, model.DocumentStatusProcessing, nil, ""))

	resp, err := http.Post(srv.URL+"/documents/"+doc.ID+"/analyze", "application/json",
		strings.NewReader(`{"query":"q"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAnalyzeRateLimited(t *testing.T) {
	srv, env, _ := newTestServer(t)

	up := uploadFile(t, srv, "report.txt", "text", "")
	doc := decodeJSON[model.Document](t, up)

	limited := httptest.NewServer(newRouter(context.Background(), env, newUserLimiter(0.0001, 1)))
	defer limited.Close()

	first, err := http.Post(limited.URL+"/documents/"+doc.ID+"/analyze", "application/json",
		strings.NewReader(`{"query":"q","user_id":"bob"}`))
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	second, err := http.Post(limited.URL+"/documents/"+doc.ID+"/analyze", "application/json",
		strings.NewReader(`{"query":"q","user_id":"bob"}`))
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestGetAndListDocuments(t *testing.T) {
	srv, _, _ := newTestServer(t)

	up := uploadFile(t, srv, "report.txt", "text", "carol")
	doc := decodeJSON[model.Document](t, up)

	resp, err := http.Get(srv.URL + "/documents/" + doc.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeJSON[model.Document](t, resp)
	assert.Equal(t, doc.ID, got.ID)

	listResp, err := http.Get(srv.URL + "/documents/?uploaded_by=carol")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	docs := decodeJSON[[]model.Document](t, listResp)
	require.Len(t, docs, 1)

	missing, err := http.Get(srv.URL + "/documents/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestListAnalyses(t *testing.T) {
	srv, env, _ := newTestServer(t)

	up := uploadFile(t, srv, "report.txt", "text", "")
	doc := decodeJSON[model.Document](t, up)

	rec := &model.AnalysisRecord{
		DocumentID: doc.ID,
		UserID:     "u",
		Query:      "q",
		Results:    map[string]any{"verification": "VERIFIED"},
	}
	require.NoError(t, env.Store.SaveAnalysis(context.Background(), rec))

	resp, err := http.Get(srv.URL + "/documents/" + doc.ID + "/analyses")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recs := decodeJSON[[]model.AnalysisRecord](t, resp)
	require.Len(t, recs, 1)
	assert.Equal(t, "VERIFIED", recs[0].Results["verification"])

	one, err := http.Get(srv.URL + "/analyses/" + rec.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, one.StatusCode)
	single := decodeJSON[model.AnalysisRecord](t, one)
	assert.Equal(t, rec.ID, single.ID)

	empty, err := http.Get(srv.URL + "/analyses/nope")
	require.NoError(t, err)
	empty.Body.Close()
	assert.Equal(t, http.StatusNotFound, empty.StatusCode)
}
