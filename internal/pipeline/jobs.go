package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of a batch run.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one batch run over a set of article ids.
type Job struct {
	mu sync.Mutex

	RunID  string    `json:"run_id"`
	Status JobStatus `json:"status"`

	Progress Progress `json:"progress"`
	Report   *Report  `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress tracks batch counters.
type Progress struct {
	TotalArticles  int `json:"total_articles"`
	Processed      int `json:"processed"`
	Failed         int `json:"failed"`
	Chunks         int `json:"chunks"`
	SidecarEntries int `json:"sidecar_entries"`
	Warnings       int `json:"warnings"`
}

func NewJob(runID string, total int) *Job {
	now := time.Now()
	return &Job{
		RunID:     runID,
		Status:    StatusQueued,
		Progress:  Progress{TotalArticles: total},
		Report:    NewReport(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// ArticleDone records one processed article's counters.
func (j *Job) ArticleDone(chunks, sidecar, warnings int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Processed++
	j.Progress.Chunks += chunks
	j.Progress.SidecarEntries += sidecar
	j.Progress.Warnings += warnings
	j.UpdatedAt = time.Now()
}

// ArticleFailed records one failed article.
func (j *Job) ArticleFailed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Processed++
	j.Progress.Failed++
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	RunID     string         `json:"run_id"`
	Status    JobStatus      `json:"status"`
	Progress  Progress       `json:"progress"`
	Report    ReportSnapshot `json:"report"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot returns a consistent copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		RunID:     j.RunID,
		Status:    j.Status,
		Progress:  j.Progress,
		Report:    j.Report.Snapshot(),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.RunID] = job
}

func (s *JobStore) Get(runID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[runID]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}
