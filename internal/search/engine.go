package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/snippet"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
)

// Searcher answers ranked queries.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]Result, error)
}

// Engine ranks documents of one index.
type Engine struct {
	store        store.Store
	opts         Options
	metrics      *telemetry.Metrics      // Optional Prometheus collectors
	queryMetrics *telemetry.QueryMetrics // Optional query pattern telemetry
	observer     func(Event)
}

var _ Searcher = (*Engine)(nil)

// EventKind distinguishes search progress events.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
)

// Event reports search progress to an observer.
type Event struct {
	Kind      EventKind
	RequestID string
	Query     string
	Results   int
	Duration  time.Duration
	Err       error
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics sets Prometheus collectors.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueryMetrics sets a query pattern collector.
func WithQueryMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.queryMetrics = m
	}
}

// WithObserver registers fn for started/completed events. fn runs on the
// searching goroutine and must not block.
func WithObserver(fn func(Event)) EngineOption {
	return func(e *Engine) {
		e.observer = fn
	}
}

// New creates an Engine over st.
func New(st store.Store, opts Options, engineOpts ...EngineOption) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("index store is required")
	}
	if opts.K1 < 0 || opts.B < 0 || opts.B > 1 {
		return nil, doterrors.InvalidArgument(
			fmt.Sprintf("invalid BM25 parameters k1=%v b=%v", opts.K1, opts.B))
	}

	e := &Engine{store: st, opts: opts}
	for _, o := range engineOpts {
		o(e)
	}
	return e, nil
}

// SearchOption adjusts a single search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	window int
}

// WithWindow overrides the snippet window for one search.
func WithWindow(n int) SearchOption {
	return func(c *searchConfig) {
		c.window = n
	}
}

// Search returns the topK documents best matching query. Documents match
// if they contain any query term; quoted phrases must additionally occur
// contiguously. An empty query yields no results.
func (e *Engine) Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]Result, error) {
	if topK <= 0 {
		return nil, doterrors.InvalidArgument("topK must be positive").
			WithDetail("top_k", strconv.Itoa(topK))
	}
	if len(query) > MaxQueryLength {
		return nil, doterrors.New(doterrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query is %d bytes, limit is %d", len(query), MaxQueryLength), nil)
	}

	cfg := searchConfig{window: e.opts.SnippetWindow}
	for _, o := range opts {
		o(&cfg)
	}
	if len(opts) > 0 && cfg.window <= 0 {
		return nil, doterrors.InvalidArgument("snippet window must be positive").
			WithDetail("window", strconv.Itoa(cfg.window))
	}

	q := ParseQuery(e.store.Normalizer(), query)
	requestID := uuid.NewString()
	start := time.Now()

	e.notify(Event{Kind: EventStarted, RequestID: requestID, Query: query})
	slog.Debug("search_started",
		slog.String("request_id", requestID),
		slog.Int("terms", len(q.Terms)),
		slog.Int("phrases", len(q.Phrases)))

	var results []Result
	var err error
	if q.IsEmpty() {
		results = []Result{}
	} else {
		err = e.store.View(ctx, func(r store.Reader) error {
			results, err = e.rank(ctx, r, q, topK, cfg.window)
			return err
		})
	}

	elapsed := time.Since(start)
	e.metrics.ObserveSearch(elapsed, len(results), err)
	e.notify(Event{Kind: EventCompleted, RequestID: requestID, Query: query,
		Results: len(results), Duration: elapsed, Err: err})

	if err != nil {
		slog.Warn("search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		if _, ok := doterrors.As(err); ok {
			return nil, err
		}
		return nil, doterrors.New(doterrors.ErrCodeSearchFailed, "search failed", err)
	}

	e.queryMetrics.Record(telemetry.QueryEvent{
		Query:       query,
		Terms:       q.Terms,
		ResultCount: len(results),
		Latency:     elapsed,
	})
	slog.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Int("results", len(results)),
		slog.Duration("duration", elapsed))

	return results, nil
}

func (e *Engine) notify(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// candidate accumulates one document's score.
type candidate struct {
	docID     string
	score     float64
	matched   []string
	positions map[string][]int
}

// rank scores every matching document inside one read snapshot.
func (e *Engine) rank(ctx context.Context, r store.Reader, q *Query, topK, window int) ([]Result, error) {
	n, err := r.DocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	avgLen, err := r.AverageDocumentLength(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*candidate)
	lengths := make(map[string]int)

	for _, term := range q.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := r.LookupTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			continue
		}
		idf := inverseDocumentFrequency(n, len(postings))

		for _, p := range postings {
			docLen, ok := lengths[p.DocID]
			if !ok {
				docLen, _, err = r.DocumentLength(ctx, p.DocID)
				if err != nil {
					return nil, err
				}
				lengths[p.DocID] = docLen
			}

			c := candidates[p.DocID]
			if c == nil {
				c = &candidate{docID: p.DocID, positions: make(map[string][]int)}
				candidates[p.DocID] = c
			}
			c.score += idf * e.termWeight(p.TermFrequency, docLen, avgLen)
			c.matched = append(c.matched, term)
			c.positions[term] = p.Positions
		}
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if matchesPhrases(c.positions, q.Phrases) {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docID < ranked[j].docID
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]Result, 0, len(ranked))
	for _, c := range ranked {
		res := Result{
			DocID:        c.docID,
			Score:        c.score,
			MatchedTerms: c.matched,
			Fragments:    []snippet.Fragment{},
		}
		doc, tokens, err := r.GetDocument(ctx, c.docID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			res.Name = doc.Name
			if window > 0 {
				res.Fragments = snippet.Fragments(doc.RawText, tokens, c.matched, window)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// inverseDocumentFrequency is the BM25 idf, always positive.
func inverseDocumentFrequency(n, df int) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// termWeight is the saturating, length-normalized term frequency.
func (e *Engine) termWeight(tf, docLen int, avgLen float64) float64 {
	norm := 1.0
	if avgLen > 0 {
		norm = 1 - e.opts.B + e.opts.B*float64(docLen)/avgLen
	}
	f := float64(tf)
	return f * (e.opts.K1 + 1) / (f + e.opts.K1*norm)
}

// matchesPhrases reports whether every phrase occurs contiguously, in
// order, according to the term positions of one document.
func matchesPhrases(positions map[string][]int, phrases [][]string) bool {
	for _, phrase := range phrases {
		if !containsPhrase(positions, phrase) {
			return false
		}
	}
	return true
}

func containsPhrase(positions map[string][]int, phrase []string) bool {
	first, ok := positions[phrase[0]]
	if !ok {
		return false
	}
	for _, p := range first {
		found := true
		for i := 1; i < len(phrase); i++ {
			if !hasPosition(positions[phrase[i]], p+i) {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}

// hasPosition searches an ascending position list.
func hasPosition(list []int, pos int) bool {
	i := sort.SearchInts(list, pos)
	return i < len(list) && list[i] == pos
}
