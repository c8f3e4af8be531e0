// Package handler exposes the engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lumisearch/lumi/internal/engine"
	"github.com/lumisearch/lumi/internal/indexer"
	"github.com/lumisearch/lumi/internal/searcher/executor"
	apperrors "github.com/lumisearch/lumi/pkg/errors"
	"github.com/lumisearch/lumi/pkg/logger"
)

// Engine is the part of *engine.Engine the handlers call.
type Engine interface {
	Query(ctx context.Context, query string, limit int) (*executor.SearchResult, bool, error)
	Autocomplete(prefix string, limit int) []string
	AddDocument(ctx context.Context, docID int, text string) (*indexer.AddResult, error)
	Stats() engine.Stats
	Reload(ctx context.Context) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Handler struct {
	engine       Engine
	cache        Invalidator
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds the handlers. cache may be nil when result caching is off.
func New(eng Engine, cache Invalidator, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       eng,
		cache:        cache,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/autocomplete", h.Autocomplete)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r, h.defaultLimit, h.maxResults)
	if !ok {
		return
	}

	result, cacheHit, err := h.engine.Query(ctx, query, limit)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, apperrors.ErrEmptyQuery) {
			h.writeError(w, status, "query has no searchable words")
			return
		}
		log.Error("search failed", "query", query, "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"shards_loaded", result.ShardsLoaded,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("X-Cache", cacheStatus(cacheHit))
	h.writeJSON(w, http.StatusOK, result)
}

type autocompleteResponse struct {
	Prefix      string   `json:"prefix"`
	Suggestions []string `json:"suggestions"`
}

func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	// limit 0 lets the engine apply its configured default
	limit, ok := h.parseLimit(w, r, 0, h.maxResults)
	if !ok {
		return
	}
	prefix := r.URL.Query().Get("prefix")
	h.writeJSON(w, http.StatusOK, autocompleteResponse{
		Prefix:      prefix,
		Suggestions: h.engine.Autocomplete(prefix, limit),
	})
}

type addDocumentRequest struct {
	DocID *int   `json:"doc_id"`
	Text  string `json:"text"`
}

const maxDocumentBody = 2 << 20

func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req addDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBody)).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"document body exceeds %d bytes", tooBig.Limit))
			return
		}
		h.fail(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body"))
		return
	}
	if req.DocID == nil {
		h.fail(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "doc_id is required"))
		return
	}

	res, err := h.engine.AddDocument(ctx, *req.DocID, req.Text)
	if err != nil {
		log.Error("document add failed", "doc_id", *req.DocID, "error", err,
			"status_code", apperrors.HTTPStatusCode(err))
		h.fail(w, err)
		return
	}
	log.Info("document indexed",
		"doc_id", res.DocID,
		"terms", res.Terms,
		"new_words", len(res.NewWords),
		"shards_written", len(res.ShardsWritten),
	)
	h.writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "reload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// parseLimit reads the optional limit parameter, capping it at max. It
// writes a 400 and returns false when the value is not a positive integer.
func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if max > 0 && n > max {
		n = max
	}
	return n, true
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// fail writes err with the status HTTPStatusCode picks for it. An AppError
// contributes its own message.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeError(w, apperrors.HTTPStatusCode(err), msg)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
