// Package api serves the query engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omarfoud/pdf-text-searcher/internal/async"
	"github.com/omarfoud/pdf-text-searcher/internal/config"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/snippet"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
	"github.com/omarfoud/pdf-text-searcher/pkg/version"
)

// Request limits.
const (
	maxTopK   = 100
	maxWindow = 4096
)

// API holds the handlers' dependencies.
type API struct {
	engine   search.Searcher
	store    store.Store
	snippets *snippet.Generator
	cfg      *config.Config
	metrics  *telemetry.Metrics
	progress *async.IndexProgress
}

// Option configures an API.
type Option func(*API)

// WithMetrics records requests and exposes /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithProgress reports a background index run on /status.
func WithProgress(p *async.IndexProgress) Option {
	return func(a *API) { a.progress = p }
}

// New creates an API over an engine and the store it reads.
func New(engine search.Searcher, st store.Store, cfg *config.Config, opts ...Option) *API {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	a := &API{
		engine:   engine,
		store:    st,
		snippets: snippet.New(st),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), ObservabilityMiddleware(a.metrics))

	router.GET("/health", a.HealthHandler)
	router.GET("/status", a.StatusHandler)
	router.GET("/search", a.SearchHandler)
	router.GET("/snippet", a.SnippetHandler)
	router.GET("/documents/*id", a.DocumentHandler)
	if a.metrics != nil {
		router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}
	return router
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query    string          `json:"query"`
	TopK     int             `json:"top_k"`
	Results  []search.Result `json:"results"`
	Took     string          `json:"took"`
	Indexing bool            `json:"indexing,omitempty"`
}

// SearchHandler handles GET /search?q=&k=&window=.
// k defaults to search.top_k; an explicit k <= 0 is rejected.
func (a *API) SearchHandler(c *gin.Context) {
	start := time.Now()
	query := c.Query("q")

	topK := a.cfg.Search.TopK
	if raw, ok := c.GetQuery("k"); ok {
		k, err := strconv.Atoi(raw)
		if err != nil {
			SendInvalidRequest(c, fmt.Sprintf("k must be an integer, got %q", raw))
			return
		}
		topK = min(k, maxTopK)
	}
	window, ok := a.window(c)
	if !ok {
		return
	}

	results, err := a.engine.Search(c.Request.Context(), query, topK, search.WithWindow(window))
	if err != nil {
		SendDocError(c, err)
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Query:    query,
		TopK:     topK,
		Results:  results,
		Took:     time.Since(start).String(),
		Indexing: a.progress != nil && a.progress.IsIndexing(),
	})
}

// SnippetResponse is the body of GET /snippet.
type SnippetResponse struct {
	DocID     string             `json:"doc_id"`
	Terms     []string           `json:"terms"`
	Fragments []snippet.Fragment `json:"fragments"`
}

// SnippetHandler handles GET /snippet?doc_id=&terms=&window=. Terms are
// normalized the same way queries are.
func (a *API) SnippetHandler(c *gin.Context) {
	docID := c.Query("doc_id")
	if strings.TrimSpace(docID) == "" {
		SendInvalidRequest(c, "doc_id is required")
		return
	}
	window, ok := a.window(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	doc, _, err := a.store.GetDocument(ctx, docID)
	if err != nil {
		SendDocError(c, err)
		return
	}
	if doc == nil {
		SendError(c, http.StatusNotFound, ErrorCodeDocumentNotFound, fmt.Sprintf("document %q is not indexed", docID))
		return
	}

	terms := a.store.Normalizer().Terms(c.Query("terms"))
	fragments, err := a.snippets.Snippet(ctx, docID, terms, window)
	if err != nil {
		SendDocError(c, err)
		return
	}
	c.JSON(http.StatusOK, SnippetResponse{DocID: docID, Terms: terms, Fragments: fragments})
}

// DocumentHandler handles GET /documents/*id and returns the stored
// document including its raw text.
func (a *API) DocumentHandler(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	if id == "" {
		SendInvalidRequest(c, "document id is required")
		return
	}

	doc, _, err := a.store.GetDocument(c.Request.Context(), id)
	if err != nil {
		SendDocError(c, err)
		return
	}
	if doc == nil {
		SendError(c, http.StatusNotFound, ErrorCodeDocumentNotFound, fmt.Sprintf("document %q is not indexed", id))
		return
	}
	c.JSON(http.StatusOK, doc)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Stats    *store.Stats                 `json:"stats"`
	Indexing *async.IndexProgressSnapshot `json:"indexing,omitempty"`
}

// StatusHandler handles GET /status.
func (a *API) StatusHandler(c *gin.Context) {
	stats, err := a.store.Stats(c.Request.Context())
	if err != nil {
		SendDocError(c, err)
		return
	}
	resp := StatusResponse{Stats: stats}
	if a.progress != nil {
		snap := a.progress.Snapshot()
		resp.Indexing = &snap
	}
	c.JSON(http.StatusOK, resp)
}

// HealthHandler handles GET /health.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

// window parses the optional window parameter, writing a 400 on failure.
func (a *API) window(c *gin.Context) (int, bool) {
	raw, ok := c.GetQuery("window")
	if !ok || raw == "" {
		return a.cfg.Search.SnippetWindow, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		SendInvalidRequest(c, fmt.Sprintf("window must be a positive integer, got %q", raw))
		return 0, false
	}
	return min(n, maxWindow), true
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("http_server_stopped")
	return nil
}
