package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cardsmith/internal/app"
	"cardsmith/internal/cache"
	"cardsmith/internal/deck"
	"cardsmith/internal/export"
	"cardsmith/internal/httputil"
	"cardsmith/internal/ingest"
	"cardsmith/internal/queue"
	"cardsmith/internal/store"
)

type generateTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
}

type summarizeTaskPayload struct {
	DocumentID  uuid.UUID `json:"document_id"`
	TargetWords int       `json:"target_words"`
}

type summarizeRequest struct {
	TargetWords int `json:"target_words" validate:"omitempty,min=50,max=2000"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents/upload", uploadHandler(deps))
	r.Get("/api/documents/{id}", statusHandler(deps))
	r.Get("/api/documents/{id}/deck", deckHandler(deps))
	r.Post("/api/documents/{id}/summarize", summarizeHandler(deps))
	r.Get("/api/documents/{id}/summary", summaryHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		src, err := ingest.Load(header.Filename, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "could not extract text from file", err, http.StatusBadRequest)
			return
		}

		doc, err := deps.Store.CreateDocument(ctx, src.Title, string(src.Type))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist document", err, http.StatusInternalServerError)
			return
		}

		payload := generateTaskPayload{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    src.Content,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			fail(deps, ctx, w, "marshal payload failed", err, doc.ID, http.StatusInternalServerError, true)
			return
		}
		task := queue.Task{Type: queue.TaskTypeGenerate, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(deps, ctx, w, "failed to enqueue document; please retry", err, doc.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": doc.ID.String(),
			"status":      doc.Status,
		})
	}
}

// fail is a gateway-specific error handler that can mark documents as failed.
func fail(deps app.Deps, ctx context.Context, w http.ResponseWriter, message string, err error, docID uuid.UUID, status int, markFailed bool) {
	log := deps.Log.With("document_id", docID)
	if markFailed && docID != uuid.Nil {
		if upErr := deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusFailed, message); upErr != nil {
			log.Error("failed to mark document failed", "err", upErr)
		}
	}

	httputil.Fail(log, w, message, err, status)
}

func statusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseDocID(deps, w, r)
		if !ok {
			return
		}
		doc, err := deps.Store.GetDocument(r.Context(), docID)
		if err != nil {
			status := http.StatusInternalServerError
			if err == store.ErrDocumentNotFound {
				status = http.StatusNotFound
			}
			httputil.Fail(deps.Log, w, "document not found", err, status)
			return
		}

		resp := map[string]any{
			"document_id": doc.ID.String(),
			"title":       doc.Title,
			"source_type": doc.SourceType,
			"status":      doc.Status,
			"created_at":  doc.CreatedAt,
		}
		if doc.Error != "" {
			resp["error"] = doc.Error
		}
		if progress, err := deps.Cache.GetProgress(r.Context(), docID.String()); err == nil && progress != nil {
			resp["progress"] = progress
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func deckHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseDocID(deps, w, r)
		if !ok {
			return
		}
		doc, err := deps.Store.GetDocument(r.Context(), docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
			return
		}
		cards, err := deps.Store.ListCards(r.Context(), docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load cards", err, http.StatusInternalServerError)
			return
		}

		d := deck.New(doc.Title)
		d.AddAll(cards)

		if r.URL.Query().Get("format") == "tsv" {
			w.Header().Set("Content-Type", "text/tab-separated-values")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+".tsv"))
			if err := export.WriteAnkiTSV(w, d); err != nil {
				deps.Log.Error("tsv export failed", "err", err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteDeckJSON(w, d); err != nil {
			deps.Log.Error("json export failed", "err", err)
		}
	}
}

func summarizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseDocID(deps, w, r)
		if !ok {
			return
		}
		if _, err := deps.Store.GetDocument(r.Context(), docID); err != nil {
			httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
			return
		}

		req := summarizeRequest{}
		if r.ContentLength > 0 {
			if err := httputil.DecodeAndValidate(r, &req); err != nil {
				httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
				return
			}
		}
		if req.TargetWords == 0 {
			req.TargetWords = deps.Config.SummaryTargetWords
		}

		body, err := json.Marshal(summarizeTaskPayload{DocumentID: docID, TargetWords: req.TargetWords})
		if err != nil {
			httputil.Fail(deps.Log, w, "marshal payload failed", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypeSummarize, Payload: body}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue summarize task; please retry", err, http.StatusInternalServerError)
			return
		}

		_ = deps.Cache.SetProgress(r.Context(), docID.String(),
			&cache.Progress{Stage: cache.StageSummarizing},
			time.Duration(deps.Config.ProgressTTL)*time.Second)

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id":  docID.String(),
			"target_words": req.TargetWords,
		})
	}
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := parseDocID(deps, w, r)
		if !ok {
			return
		}
		sum, err := deps.Store.GetSummary(r.Context(), docID)
		if err != nil {
			status := http.StatusInternalServerError
			if err == store.ErrSummaryNotFound {
				status = http.StatusNotFound
			}
			httputil.Fail(deps.Log, w, "summary not ready", err, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document_id":  docID.String(),
			"summary":      sum.Summary,
			"target_words": sum.TargetWords,
		})
	}
}

func parseDocID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return docID, true
}
