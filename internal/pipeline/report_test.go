package pipeline

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestReportAggregation(t *testing.T) {
	r := NewReport()
	r.AddWarnings("Zebra", []string{"table TBL_1: no recognizable rows, kept flattened text"})
	r.AddWarnings("Alpha", []string{"w1"})
	r.AddWarnings("Alpha", []string{"w2"})
	r.AddWarnings("Empty", nil)
	r.AddFailure("Broken", errors.New("read: no such file"))

	snap := r.Snapshot()

	if len(snap.Warnings) != 2 {
		t.Fatalf("warnings = %+v", snap.Warnings)
	}
	// Ordered by article id, per-article warnings in arrival order.
	if snap.Warnings[0].ArticleID != "Alpha" || !reflect.DeepEqual(snap.Warnings[0].Warnings, []string{"w1", "w2"}) {
		t.Errorf("first warning entry = %+v", snap.Warnings[0])
	}
	if snap.Warnings[1].ArticleID != "Zebra" {
		t.Errorf("second warning entry = %+v", snap.Warnings[1])
	}

	if len(snap.Failures) != 1 || snap.Failures[0].ArticleID != "Broken" {
		t.Fatalf("failures = %+v", snap.Failures)
	}
	if r.FailureCount() != 1 {
		t.Errorf("failure count = %d", r.FailureCount())
	}
}

func TestReportSnapshotIsCopy(t *testing.T) {
	r := NewReport()
	r.AddWarnings("A", []string{"w1"})

	snap := r.Snapshot()
	snap.Warnings[0].Warnings[0] = "mutated"

	if got := r.Snapshot().Warnings[0].Warnings[0]; got != "w1" {
		t.Errorf("snapshot mutation leaked into report: %q", got)
	}
}

func TestJobCounters(t *testing.T) {
	job := NewJob("run-1", 3)
	if job.Status != StatusQueued {
		t.Fatalf("initial status = %q", job.Status)
	}

	job.SetStatus(StatusRunning)
	job.ArticleDone(4, 2, 1)
	job.ArticleDone(1, 0, 0)
	job.ArticleFailed()

	snap := job.Snapshot()
	want := Progress{TotalArticles: 3, Processed: 3, Failed: 1, Chunks: 5, SidecarEntries: 2, Warnings: 1}
	if snap.Progress != want {
		t.Errorf("progress = %+v, want %+v", snap.Progress, want)
	}
	if snap.RunID != "run-1" || snap.Status != StatusRunning {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestJobStoreTTL(t *testing.T) {
	store := NewJobStore(0) // everything is immediately stale
	job := NewJob("run-1", 1)
	store.Put(job)

	if store.Get("run-1") != job {
		t.Fatal("job not retrievable")
	}
	time.Sleep(time.Millisecond)
	store.Cleanup()
	if store.Get("run-1") != nil {
		t.Error("expired job survived cleanup")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error marked retryable")
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d < 0 || d > 45e9 {
			t.Errorf("Backoff(%d) = %v out of range", attempt, d)
		}
	}
	if d := Backoff(0); d < 1e9 {
		t.Errorf("Backoff(0) = %v below base", d)
	}
}
