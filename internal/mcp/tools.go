package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"free-text query; wrap words in double quotes to require a phrase"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return"`
	Window int    `json:"window,omitempty" jsonschema:"snippet width in characters"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked documents, best first"`
	// Indexing is set while a background index run is still writing.
	Indexing bool `json:"indexing,omitempty" jsonschema:"true when results may be incomplete because indexing is in progress"`
}

// SearchResultOutput is one ranked document.
type SearchResultOutput struct {
	DocID        string   `json:"doc_id" jsonschema:"document identifier, the path relative to the source directory"`
	Name         string   `json:"name" jsonschema:"display name of the document"`
	Score        float64  `json:"score" jsonschema:"BM25 relevance score"`
	MatchedTerms []string `json:"matched_terms" jsonschema:"normalized query terms found in the document"`
	Snippets     []string `json:"snippets,omitempty" jsonschema:"excerpts with matches wrapped in **"`
}

// SnippetInput defines the input schema for the snippet tool.
type SnippetInput struct {
	DocID  string `json:"doc_id" jsonschema:"document identifier as returned by search"`
	Terms  string `json:"terms" jsonschema:"words to highlight; they are normalized the same way as queries"`
	Window int    `json:"window,omitempty" jsonschema:"snippet width in characters"`
}

// SnippetOutput defines the output schema for the snippet tool.
type SnippetOutput struct {
	DocID     string           `json:"doc_id"`
	Fragments []FragmentOutput `json:"fragments"`
}

// FragmentOutput is one excerpt with byte offsets into the document.
type FragmentOutput struct {
	Start int    `json:"start" jsonschema:"byte offset of the excerpt in the document"`
	End   int    `json:"end" jsonschema:"end byte offset, exclusive"`
	Text  string `json:"text" jsonschema:"excerpt with matches wrapped in **"`
}

// IndexStatusInput defines the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	SourceDir string            `json:"source_dir"`
	IndexPath string            `json:"index_path"`
	Stats     IndexStats        `json:"stats"`
	Indexing  *IndexingProgress `json:"indexing,omitempty"`
}

// IndexStats summarizes the index.
type IndexStats struct {
	Documents      int     `json:"documents"`
	EmptyDocuments int     `json:"empty_documents"`
	Terms          int     `json:"terms"`
	TotalTokens    int64   `json:"total_tokens"`
	AverageLength  float64 `json:"average_length"`
	IndexSizeBytes int64   `json:"index_size_bytes"`
	Analyzer       string  `json:"analyzer"`
	LastIndexed    string  `json:"last_indexed,omitempty"`
}

// IndexingProgress describes a background index run.
type IndexingProgress struct {
	Status             string  `json:"status"`
	Stage              string  `json:"stage,omitempty"`
	DocumentsTotal     int     `json:"documents_total"`
	DocumentsProcessed int     `json:"documents_processed"`
	DocumentsIndexed   int     `json:"documents_indexed"`
	ProgressPct        float64 `json:"progress_pct"`
	ElapsedSeconds     int     `json:"elapsed_seconds"`
	ErrorMessage       string  `json:"error_message,omitempty"`
}
