package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omarfoud/pdf-text-searcher/internal/async"
	"github.com/omarfoud/pdf-text-searcher/internal/config"
	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/snippet"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
	"github.com/omarfoud/pdf-text-searcher/pkg/version"
)

// Result limits accepted from clients.
const (
	maxLimit  = 100
	maxWindow = 4096
)

// Server bridges MCP clients with the query engine and snippet generator.
type Server struct {
	mcp    *mcp.Server
	engine search.Searcher
	store  store.Store
	config *config.Config
	logger *slog.Logger

	// Background indexing progress (nil if not indexing)
	indexProgress *async.IndexProgress

	// Query telemetry (optional, set via SetQueryMetrics)
	queryMetrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        "search",
		Description: "Ranked full-text search over the indexed documents. Words are matched after stemming, so 'run' also finds 'running' and 'ran'. Quote words to require an exact phrase. Returns documents best first with highlighted snippets.",
	},
	{
		Name:        "snippet",
		Description: "Highlighted excerpts of one document for the given words. Use it to read more context around matches of a document returned by search.",
	},
	{
		Name:        "index_status",
		Description: "Index statistics and background indexing progress. Use before searching to check the index is complete.",
	},
}

// NewServer creates an MCP server. cfg supplies result and snippet defaults.
func NewServer(engine search.Searcher, st store.Store, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if st == nil {
		return nil, errors.New("index store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine: engine,
		store:  st,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// SetIndexProgress attaches the progress of a background index run.
func (s *Server) SetIndexProgress(progress *async.IndexProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexProgress = progress
}

// SetQueryMetrics attaches query telemetry and registers the
// query_metrics resource.
func (s *Server) SetQueryMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	s.queryMetrics = m
	s.mu.Unlock()

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfos))
	copy(out, toolInfos)
	return out
}

// CallTool invokes a tool by name with JSON-decoded arguments and returns
// the markdown rendering (or the status struct for index_status).
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		in := SearchInput{Query: stringArg(args, "query"), Limit: intArg(args, "limit"), Window: intArg(args, "window")}
		results, indexing, err := s.search(ctx, in)
		if err != nil {
			return nil, err
		}
		text := FormatSearchResults(in.Query, results)
		if indexing {
			text = indexingNotice(s.progress()) + text
		}
		return text, nil
	case "snippet":
		in := SnippetInput{DocID: stringArg(args, "doc_id"), Terms: stringArg(args, "terms"), Window: intArg(args, "window")}
		fragments, err := s.snippet(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatSnippets(in.DocID, fragments), nil
	case "index_status":
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg reads a JSON number argument.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (s *Server) progress() *async.IndexProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexProgress
}

func indexingNotice(p *async.IndexProgress) string {
	if p == nil {
		return ""
	}
	snap := p.Snapshot()
	return fmt.Sprintf("_Indexing in progress: %.1f%% (%d/%d documents). Results may be incomplete._\n\n",
		snap.ProgressPct, snap.DocumentsProcessed, snap.DocumentsTotal)
}

// search validates input, applies defaults and runs the query.
func (s *Server) search(ctx context.Context, in SearchInput) ([]search.Result, bool, error) {
	start := time.Now()
	requestID := uuid.NewString()

	if in.Window < 0 {
		return nil, false, NewInvalidParamsError("window must not be negative")
	}
	limit := clampLimit(in.Limit, s.config.Search.TopK, 1, maxLimit)
	window := clampLimit(in.Window, s.config.Search.SnippetWindow, 1, maxWindow)

	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", limit))

	results, err := s.engine.Search(ctx, strings.TrimSpace(in.Query), limit, search.WithWindow(window))
	duration := time.Since(start)
	if err != nil {
		attrs := append([]any{
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
		}, doterrors.LogAttrs(err)...)
		s.logger.Error("search_failed", attrs...)
		return nil, false, MapError(err)
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	p := s.progress()
	return results, p != nil && p.IsIndexing(), nil
}

// snippet highlights the query-normalized terms in one stored document.
func (s *Server) snippet(ctx context.Context, in SnippetInput) ([]snippet.Fragment, error) {
	if strings.TrimSpace(in.DocID) == "" {
		return nil, NewInvalidParamsError("doc_id is required")
	}
	if in.Window < 0 {
		return nil, NewInvalidParamsError("window must not be negative")
	}
	window := clampLimit(in.Window, s.config.Search.SnippetWindow, 1, maxWindow)

	doc, tokens, err := s.store.GetDocument(ctx, in.DocID)
	if err != nil {
		return nil, MapError(err)
	}
	if doc == nil {
		return nil, MapError(doterrors.New(doterrors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %q is not indexed", in.DocID), nil))
	}

	terms := s.store.Normalizer().Terms(in.Terms)
	return snippet.Fragments(doc.RawText, tokens, terms, window), nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	out := &IndexStatusOutput{
		SourceDir: s.config.Source.Dir,
		IndexPath: s.config.IndexPath(),
		Stats: IndexStats{
			Documents:      stats.Documents,
			EmptyDocuments: stats.EmptyDocs,
			Terms:          stats.Terms,
			TotalTokens:    stats.TotalTokens,
			AverageLength:  stats.AverageLength,
			IndexSizeBytes: stats.SizeBytes,
			Analyzer:       stats.Analyzer,
		},
	}
	if !stats.LastIndexed.IsZero() {
		out.Stats.LastIndexed = stats.LastIndexed.Format(time.RFC3339)
	}

	if p := s.progress(); p != nil {
		snap := p.Snapshot()
		out.Indexing = &IndexingProgress{
			Status:             snap.Status,
			Stage:              snap.Stage,
			DocumentsTotal:     snap.DocumentsTotal,
			DocumentsProcessed: snap.DocumentsProcessed,
			DocumentsIndexed:   snap.DocumentsIndexed,
			ProgressPct:        snap.ProgressPct,
			ElapsedSeconds:     snap.ElapsedSeconds,
			ErrorMessage:       snap.ErrorMessage,
		}
	}
	return out, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: toolInfos[0].Name, Description: toolInfos[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: toolInfos[1].Name, Description: toolInfos[1].Description}, s.mcpSnippetHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: toolInfos[2].Name, Description: toolInfos[2].Description}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(toolInfos)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	results, indexing, err := s.search(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, 0, len(results)),
		Indexing: indexing,
	}
	for _, r := range results {
		output.Results = append(output.Results, ToSearchResultOutput(r))
	}
	return nil, output, nil
}

func (s *Server) mcpSnippetHandler(ctx context.Context, _ *mcp.CallToolRequest, input SnippetInput) (
	*mcp.CallToolResult,
	SnippetOutput,
	error,
) {
	fragments, err := s.snippet(ctx, input)
	if err != nil {
		return nil, SnippetOutput{}, err
	}
	return nil, SnippetOutput{DocID: input.DocID, Fragments: toFragmentOutputs(fragments)}, nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	output, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, output, nil
}

// Serve runs the server on the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
