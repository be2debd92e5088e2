package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omarfoud/pdf-text-searcher/internal/store"
)

// MaxResourceSize is the largest document served as a resource (1MB).
const MaxResourceSize = 1024 * 1024

const (
	documentScheme   = "doc://"
	queryMetricsURI  = "doctext://query_metrics"
	queryMetricsMIME = "application/json"
)

// DocumentURI returns the resource URI of a document.
func DocumentURI(id string) string {
	return documentScheme + id
}

// RegisterResources registers every indexed document as a resource.
// Call it after the server is created and before serving.
func (s *Server) RegisterResources(ctx context.Context) error {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, d := range docs {
		s.registerDocumentResource(d)
	}

	s.logger.Info("mcp_resources_registered", "count", len(docs))
	return nil
}

func (s *Server) registerDocumentResource(d store.Document) {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        d.Name,
			URI:         DocumentURI(d.ID),
			Description: fmt.Sprintf("%s (%d tokens)", d.ID, d.Length),
			MIMEType:    MimeTypeForPath(d.ID),
		},
		s.makeDocumentHandler(d.ID),
	)
}

func (s *Server) makeDocumentHandler(id string) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.ReadDocument(ctx, id)
	}
}

// ReadDocument returns the stored text of a document. The text comes from
// the index, not the file system, so it always matches what was searched.
func (s *Server) ReadDocument(ctx context.Context, id string) (*mcp.ReadResourceResult, error) {
	if !isValidDocID(id) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid document id: %s", id))
	}

	doc, _, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, MapError(err)
	}
	if doc == nil {
		return nil, NewResourceNotFoundError(DocumentURI(id))
	}
	if len(doc.RawText) > MaxResourceSize {
		return nil, &MCPError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("document too large: %d bytes (max %d)", len(doc.RawText), MaxResourceSize),
		}
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      DocumentURI(id),
				MIMEType: MimeTypeForPath(id),
				Text:     doc.RawText,
			},
		},
	}, nil
}

// isValidDocID rejects absolute and escaping paths.
func isValidDocID(id string) bool {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return false
	}
	if len(id) >= 2 && id[1] == ':' {
		return false
	}
	for _, part := range strings.Split(path.Clean(id), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// QueryMetricsOutput is the JSON structure of the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	RepeatQueries int64   `json:"repeat_queries"`
	TimePeriod    string  `json:"time_period"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount is a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "Query pattern telemetry: frequent terms, zero-result queries and latency",
			MIMEType:    queryMetricsMIME,
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.ReadQueryMetrics(ctx)
		},
	)
}

// ReadQueryMetrics renders the query telemetry snapshot as JSON.
func (s *Server) ReadQueryMetrics(context.Context) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.queryMetrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snapshot := metrics.Snapshot()
	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			RepeatQueries: snapshot.ExactRepeatCount,
			TimePeriod:    "since " + snapshot.Since.UTC().Format(time.RFC3339),
			ZeroResultPct: snapshot.ZeroResultPercentage(),
		},
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	content, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      queryMetricsURI,
				MIMEType: queryMetricsMIME,
				Text:     string(content),
			},
		},
	}, nil
}
