// Package telemetry collects search and indexing metrics: Prometheus
// collectors for scraping and an in-memory query pattern collector for the
// status surfaces. Nothing is reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent represents a single search for telemetry recording.
type QueryEvent struct {
	Query string
	// Terms are the normalized query terms.
	Terms       []string
	ResultCount int
	Latency     time.Duration
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		// Buffer full - oldest item is at head
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int // Max terms to track (default: 100)
	ZeroResultsCapacity   int // Max zero-result queries to keep (default: 100)
	RecentQueriesCapacity int // Max queries remembered for repeat detection (default: 500)
}

// DefaultQueryMetricsConfig returns sensible defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects query patterns in memory.
// Thread-safe for concurrent access.
type QueryMetrics struct {
	mu sync.RWMutex

	topTerms         *lru.Cache[string, int64]
	zeroResults      *CircularBuffer[string]
	latencies        map[LatencyBucket]int64
	recentQueries    *lru.Cache[string, struct{}]
	totalQueries     int64
	zeroResultCount  int64
	exactRepeatCount int64
	startTime        time.Time
}

// NewQueryMetrics creates a collector with default configuration.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom configuration.
func NewQueryMetricsWithConfig(cfg QueryMetricsConfig) *QueryMetrics {
	def := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recentQueries,
		startTime:     time.Now(),
	}
}

// Record captures one search. Safe on a nil receiver.
func (m *QueryMetrics) Record(event QueryEvent) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++

	for _, term := range event.Terms {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}

	m.latencies[LatencyToBucket(event.Latency)]++

	queryHash := hashQuery(event.Query)
	if _, exists := m.recentQueries.Get(queryHash); exists {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(queryHash, struct{}{})
}

// hashQuery creates a normalized hash of the query for repetition detection.
func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16])
}

// Snapshot returns current metrics for reporting.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &QueryMetricsSnapshot{
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ExactRepeatCount:    m.exactRepeatCount,
		Since:               m.startTime,
	}
}
