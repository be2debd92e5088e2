package index

import (
	"sort"
	"time"
)

// Report is the outcome of one IndexAll run. Every source in the
// collection appears in exactly one of Succeeded, Skipped or Failed,
// unless the run was cancelled first.
type Report struct {
	RunID string `json:"run_id"`
	// Succeeded lists documents written in this run.
	Succeeded []string `json:"succeeded"`
	// Skipped lists documents whose content was unchanged.
	Skipped []string `json:"skipped"`
	// Removed lists stored documents no longer in the collection.
	Removed []string `json:"removed"`
	// Failed maps source IDs to the reason they were not indexed. An
	// ExtractionEmpty failure still leaves the document stored.
	Failed    map[string]error `json:"-"`
	Total     int              `json:"total"`
	Cancelled bool             `json:"cancelled"`
	Duration  time.Duration    `json:"duration"`
}

func newReport(runID string, total int) *Report {
	return &Report{
		RunID:     runID,
		Succeeded: []string{},
		Skipped:   []string{},
		Removed:   []string{},
		Failed:    make(map[string]error),
		Total:     total,
	}
}

// Processed is the number of sources handled before the run ended.
func (r *Report) Processed() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failed)
}

// FailedIDs returns the failed source IDs in sorted order.
func (r *Report) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
