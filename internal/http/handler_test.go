package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josinaldojr/smart-assistant/internal/ingest"
	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReplier struct{ mock.Mock }

func (m *mockReplier) Reply(ctx context.Context, conv rag.Conversation) (rag.Turn, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(rag.Turn), args.Error(1)
}

type mockImporter struct{ mock.Mock }

func (m *mockImporter) Run(ctx context.Context) (ingest.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(ingest.Result), args.Error(1)
}

func serve(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewRouter(h, "").ServeHTTP(rec, req)
	return rec
}

func TestQueryReturnsReply(t *testing.T) {
	rp := &mockReplier{}
	conv := rag.Conversation{{Role: rag.RoleUser, Content: "Generate cases for login"}}
	rp.On("Reply", mock.Anything, conv).Return(rag.Turn{Role: rag.RoleAssistant, Content: "1. Valid login"}, nil)

	rec := serve(t, NewHandler(rp, nil, 0), http.MethodPost, "/api/query",
		`{"messages":[{"role":"user","content":"Generate cases for login"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"1. Valid login"}`, rec.Body.String())
	rp.AssertExpectations(t)
}

func TestQueryPipelineFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "embedding", err: rag.NewError(rag.StageEmbedding, 401, "bad key", errors.New("unauthorized"))},
		{name: "retrieval", err: rag.NewError(rag.StageRetrieval, 503, "", errors.New("unavailable"))},
		{name: "generation", err: rag.NewError(rag.StageGeneration, 0, "", errors.New("empty completion"))},
		{name: "untyped", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := &mockReplier{}
			rp.On("Reply", mock.Anything, mock.Anything).Return(rag.Turn{}, tt.err)

			rec := serve(t, NewHandler(rp, nil, 0), http.MethodPost, "/api/query",
				`{"messages":[{"role":"user","content":"hi"}]}`)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"An error occurred while processing your request."}`, rec.Body.String())
		})
	}
}

func TestQueryBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"messages":`},
		{name: "no messages", body: `{"messages":[]}`},
		{name: "last turn from assistant", body: `{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`},
		{name: "unknown role", body: `{"messages":[{"role":"system","content":"a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := &mockReplier{}
			rec := serve(t, NewHandler(rp, nil, 0), http.MethodPost, "/api/query", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			rp.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything)
		})
	}
}

func TestQueryAppliesTimeout(t *testing.T) {
	rp := &mockReplier{}
	rp.On("Reply", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(rag.Turn{Role: rag.RoleAssistant, Content: "ok"}, nil)

	rec := serve(t, NewHandler(rp, nil, time.Minute), http.MethodPost, "/api/query",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rp.AssertExpectations(t)
}

func TestImport(t *testing.T) {
	im := &mockImporter{}
	im.On("Run", mock.Anything).Return(ingest.Result{Imported: 12, Skipped: 1}, nil)

	rec := serve(t, NewHandler(&mockReplier{}, im, 0), http.MethodPost, "/api/import", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Data imported and indexed successfully.","imported":12,"skipped":1}`, rec.Body.String())
}

func TestImportFailure(t *testing.T) {
	im := &mockImporter{}
	im.On("Run", mock.Anything).Return(ingest.Result{}, rag.NewError(rag.StageImport, 404, "", errors.New("blob not found")))

	rec := serve(t, NewHandler(&mockReplier{}, im, 0), http.MethodPost, "/api/import", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to import and index data."}`, rec.Body.String())
}

func TestImportWithoutSource(t *testing.T) {
	rec := serve(t, NewHandler(&mockReplier{}, nil, 0), http.MethodPost, "/api/import", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := serve(t, NewHandler(&mockReplier{}, nil, 0), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("const chat = true"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	rec := httptest.NewRecorder()
	NewRouter(NewHandler(&mockReplier{}, nil, 0), dir).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "const chat = true")
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORS([]string{"http://localhost:3000"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
