package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_Add_SingleItem(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")

	items := buf.Items()
	assert.Equal(t, 1, len(items))
	assert.Equal(t, "query1", items[0])
}

func TestCircularBuffer_Add_MultipleItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")

	items := buf.Items()
	assert.Equal(t, 3, len(items))
	assert.Equal(t, []string{"query1", "query2", "query3"}, items)
}

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	// Add more items than capacity
	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")
	buf.Add("query4") // Should evict query1
	buf.Add("query5") // Should evict query2

	items := buf.Items()
	assert.Equal(t, 3, len(items))
	// Should contain last 3 items (FIFO eviction)
	assert.Equal(t, []string{"query3", "query4", "query5"}, items)
}

func TestCircularBuffer_Size(t *testing.T) {
	buf := NewCircularBuffer[string](5)

	assert.Equal(t, 0, buf.Size())

	buf.Add("a")
	assert.Equal(t, 1, buf.Size())

	buf.Add("b")
	buf.Add("c")
	assert.Equal(t, 3, buf.Size())

	// Exceed capacity
	buf.Add("d")
	buf.Add("e")
	buf.Add("f") // Evicts "a"
	assert.Equal(t, 5, buf.Size()) // Size capped at capacity
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	items := buf.Items()
	assert.Equal(t, 0, len(items))
	assert.NotNil(t, items) // Should return empty slice, not nil
}

// =============================================================================
// QueryMetrics Tests
// =============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), tt.latency.String())
	}
}

func TestQueryMetrics_Record(t *testing.T) {
	// Given: a fresh collector
	m := NewQueryMetrics()

	// When: recording a hit, a zero-result query and a repeat
	m.Record(QueryEvent{Query: "running races", Terms: []string{"run", "race"}, ResultCount: 2, Latency: 3 * time.Millisecond})
	m.Record(QueryEvent{Query: "zebra", Terms: []string{"zebra"}, ResultCount: 0, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "  Running Races ", Terms: []string{"run", "race"}, ResultCount: 2, Latency: 3 * time.Millisecond})

	// Then: the snapshot reflects all three
	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, int64(1), snap.ExactRepeatCount)
	assert.Equal(t, []string{"zebra"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP50])
	require.Len(t, snap.TopTerms, 3)
	assert.Equal(t, TermCount{Term: "race", Count: 2}, snap.TopTerms[0])
	assert.Equal(t, TermCount{Term: "run", Count: 2}, snap.TopTerms[1])
	assert.InDelta(t, 33.33, snap.ZeroResultPercentage(), 0.01)
}

func TestQueryMetrics_NilSafe(t *testing.T) {
	var m *QueryMetrics

	assert.NotPanics(t, func() { m.Record(QueryEvent{Query: "x"}) })
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := NewQueryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: "q", Terms: []string{"q"}, ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), m.Snapshot().TotalQueries)
}

// =============================================================================
// Prometheus Metrics Tests
// =============================================================================

func TestMetrics_ObserveSearch(t *testing.T) {
	m := NewMetrics()

	m.ObserveSearch(2*time.Millisecond, 3, nil)
	m.ObserveSearch(time.Millisecond, 0, nil)
	m.ObserveSearch(time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("error")))
}

func TestMetrics_ObserveIndexRun(t *testing.T) {
	m := NewMetrics()

	m.ObserveIndexRun(IndexRun{Indexed: 3, Skipped: 2, Failed: 1, Duration: time.Second})
	m.ObserveIndexRun(IndexRun{Indexed: 1, Cancelled: true})
	m.SetIndexedDocuments(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.DocsProcessedTotal.WithLabelValues("indexed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsProcessedTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsProcessedTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexRunsTotal.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexRunsTotal.WithLabelValues("cancelled")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IndexedDocuments))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestMetrics_Handler(t *testing.T) {
	// Given: a metrics set with one search recorded
	m := NewMetrics()
	m.ObserveSearch(time.Millisecond, 1, nil)

	// When: scraping
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Then: the collectors are exposed
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "doctext_search_queries_total"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch(time.Millisecond, 1, nil)
		m.ObserveIndexRun(IndexRun{})
		m.SetIndexedDocuments(1)
		m.ObserveHTTP("GET", "/", "200", time.Millisecond)
	})
}
