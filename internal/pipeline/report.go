package pipeline

import (
	"sort"
	"sync"
)

// Report aggregates per-article outcomes for operator visibility.
// Per-article recovery never aborts the batch; everything the shredder
// degraded or skipped ends up here.
type Report struct {
	mu       sync.Mutex
	warnings map[string][]string // article id -> warnings
	failures map[string]string   // article id -> terminal error
}

func NewReport() *Report {
	return &Report{
		warnings: make(map[string][]string),
		failures: make(map[string]string),
	}
}

// AddWarnings records an article's recoverable degradations.
func (r *Report) AddWarnings(articleID string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings[articleID] = append(r.warnings[articleID], warnings...)
}

// AddFailure records an article that could not be processed at all.
func (r *Report) AddFailure(articleID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[articleID] = err.Error()
}

// ArticleWarning is one article's aggregated warnings in a snapshot.
type ArticleWarning struct {
	ArticleID string   `json:"article_id"`
	Warnings  []string `json:"warnings"`
}

// ArticleFailure is one failed article in a snapshot.
type ArticleFailure struct {
	ArticleID string `json:"article_id"`
	Error     string `json:"error"`
}

// ReportSnapshot is a JSON-safe copy, ordered by article id.
type ReportSnapshot struct {
	Warnings []ArticleWarning `json:"warnings,omitempty"`
	Failures []ArticleFailure `json:"failures,omitempty"`
}

func (r *Report) Snapshot() ReportSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snap ReportSnapshot
	for id, ws := range r.warnings {
		copied := make([]string, len(ws))
		copy(copied, ws)
		snap.Warnings = append(snap.Warnings, ArticleWarning{ArticleID: id, Warnings: copied})
	}
	sort.Slice(snap.Warnings, func(i, j int) bool { return snap.Warnings[i].ArticleID < snap.Warnings[j].ArticleID })

	for id, msg := range r.failures {
		snap.Failures = append(snap.Failures, ArticleFailure{ArticleID: id, Error: msg})
	}
	sort.Slice(snap.Failures, func(i, j int) bool { return snap.Failures[i].ArticleID < snap.Failures[j].ArticleID })

	return snap
}

// FailureCount returns how many articles failed terminally.
func (r *Report) FailureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
