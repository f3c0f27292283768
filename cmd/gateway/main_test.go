package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardsmith/internal/app"
	"cardsmith/internal/cache"
	"cardsmith/internal/config"
	"cardsmith/internal/deck"
	"cardsmith/internal/queue"
	"cardsmith/internal/store"
)

func testDeps(st store.Store, q queue.Queue) app.Deps {
	return app.Deps{
		Config: config.Config{MaxUploadSize: 1 << 20, SummaryTargetWords: 300, ProgressTTL: 3600},
		Log:    slog.New(slog.DiscardHandler),
		Store:  st,
		Queue:  q,
		Cache:  cache.NewNoOpCache(),
	}
}

func newTestRouter(deps app.Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/documents/upload", uploadHandler(deps))
	r.Get("/api/documents/{id}", statusHandler(deps))
	r.Get("/api/documents/{id}/deck", deckHandler(deps))
	r.Post("/api/documents/{id}/summarize", summarizeHandler(deps))
	r.Get("/api/documents/{id}/summary", summaryHandler(deps))
	return r
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadEnqueuesGenerateTask(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("CreateDocument", mock.Anything, "notes", "txt").
		Return(store.Document{ID: docID, Title: "notes", Status: store.StatusProcessing, CreatedAt: time.Now()}, nil)

	q := new(queue.MockQueue)
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		if task.Type != queue.TaskTypeGenerate {
			return false
		}
		var p generateTaskPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return false
		}
		return p.DocumentID == docID && strings.Contains(p.Content, "mitochondria")
	})).Return(nil)

	body, contentType := multipartBody(t, "notes.txt", "The mitochondria is the powerhouse of the cell.")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(testDeps(st, q)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, docID.String(), resp["document_id"])
	st.AssertExpectations(t)
	q.AssertExpectations(t)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	st := new(store.MockStore)
	q := new(queue.MockQueue)

	body, contentType := multipartBody(t, "blank.txt", "   ")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(testDeps(st, q)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	st.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusHandler(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetDocument", mock.Anything, docID).
		Return(store.Document{ID: docID, Title: "notes", SourceType: "txt", Status: store.StatusReady, CreatedAt: time.Now()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+docID.String(), nil)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, new(queue.MockQueue))).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(store.StatusReady), resp["status"])
}

func TestStatusHandlerUnknownDocument(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetDocument", mock.Anything, docID).Return(store.Document{}, store.ErrDocumentNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+docID.String(), nil)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, new(queue.MockQueue))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeckHandlerTSV(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetDocument", mock.Anything, docID).
		Return(store.Document{ID: docID, Title: "notes", Status: store.StatusReady}, nil)
	st.On("ListCards", mock.Anything, docID).Return([]deck.Card{
		{Front: "What is a cell?", Back: "The basic unit of life.", Tags: []string{"bio"}},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+docID.String()+"/deck?format=tsv", nil)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, new(queue.MockQueue))).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/tab-separated-values", rec.Header().Get("Content-Type"))
	assert.Equal(t, "What is a cell?\tThe basic unit of life.\tbio\n", rec.Body.String())
}

func TestSummarizeHandlerValidatesTargetWords(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetDocument", mock.Anything, docID).
		Return(store.Document{ID: docID, Status: store.StatusReady}, nil)

	body := strings.NewReader(`{"target_words": 7}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+docID.String()+"/summarize", body)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, new(queue.MockQueue))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarizeHandlerEnqueues(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetDocument", mock.Anything, docID).
		Return(store.Document{ID: docID, Status: store.StatusReady}, nil)

	q := new(queue.MockQueue)
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		var p summarizeTaskPayload
		return task.Type == queue.TaskTypeSummarize &&
			json.Unmarshal(task.Payload, &p) == nil &&
			p.TargetWords == 500
	})).Return(nil)

	body := strings.NewReader(`{"target_words": 500}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+docID.String()+"/summarize", body)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, q)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	q.AssertExpectations(t)
}

func TestSummaryHandlerNotReady(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("GetSummary", mock.Anything, docID).Return(store.Summary{}, store.ErrSummaryNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+docID.String()+"/summary", nil)
	rec := httptest.NewRecorder()
	newTestRouter(testDeps(st, new(queue.MockQueue))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
