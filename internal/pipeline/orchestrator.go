package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/zimshred/internal/archive"
	"github.com/dgallion1/zimshred/internal/chunker"
	"github.com/dgallion1/zimshred/internal/config"
	"github.com/dgallion1/zimshred/internal/shred"
	"github.com/dgallion1/zimshred/internal/storage"
)

// Orchestrator runs batches of articles through the shred+chunk pipeline.
// Articles are independent: workers share only the read-only archive
// reader and the store, with no coordination between articles.
type Orchestrator struct {
	jobs     *JobStore
	reader   archive.Reader
	store    storage.Store
	shredder *shred.Shredder
	chunkCfg chunker.Config
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
	ctx    context.Context
}

func NewOrchestrator(cfg config.Config, reader archive.Reader, store storage.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		reader:   reader,
		store:    store,
		shredder: shred.New(),
		chunkCfg: cfg.ChunkerConfig(),
		log:      log,
		cfg:      cfg,
	}
}

// Start launches the background job-store cleanup. Batch workers are
// spawned per batch.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.ctx = runCtx
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight batches and waits for workers to drain.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// StartBatch begins processing the given article ids, or the whole
// archive when ids is empty. It validates configuration up front and
// returns immediately; progress is tracked on the returned job.
func (o *Orchestrator) StartBatch(articleIDs []string) (*Job, error) {
	if err := o.chunkCfg.Validate(); err != nil {
		return nil, err
	}

	if len(articleIDs) == 0 {
		ids, err := o.reader.Entries(o.ctx)
		if err != nil {
			return nil, fmt.Errorf("enumerate archive: %w", err)
		}
		articleIDs = ids
	}
	if len(articleIDs) > o.cfg.MaxQueueSize {
		return nil, fmt.Errorf("batch of %d articles exceeds queue limit %d", len(articleIDs), o.cfg.MaxQueueSize)
	}

	job := NewJob(uuid.NewString(), len(articleIDs))
	o.jobs.Put(job)
	job.SetStatus(StatusRunning)

	queue := make(chan string)
	worker := NewWorker(o.reader, o.store, o.shredder, o.chunkCfg, o.log)

	var batchWG sync.WaitGroup
	for range o.cfg.WorkerCount {
		batchWG.Add(1)
		o.wg.Add(1)
		go func() {
			defer batchWG.Done()
			defer o.wg.Done()
			for id := range queue {
				o.runArticle(worker, job, id)
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for _, id := range articleIDs {
			select {
			case queue <- id:
			case <-o.ctx.Done():
				close(queue)
				batchWG.Wait()
				job.SetStatus(StatusFailed)
				return
			}
		}
		close(queue)
		batchWG.Wait()
		if job.Report.FailureCount() > 0 {
			job.SetStatus(StatusPartial)
		} else {
			job.SetStatus(StatusCompleted)
		}
		o.log.Info("batch complete", "run_id", job.RunID, "articles", len(articleIDs), "failed", job.Report.FailureCount())
	}()

	return job, nil
}

func (o *Orchestrator) runArticle(worker *Worker, job *Job, id string) {
	res, err := worker.ProcessArticle(o.ctx, id)
	if err != nil {
		o.log.Error("article failed", "run_id", job.RunID, "article_id", id, "error", err)
		job.Report.AddFailure(id, err)
		job.ArticleFailed()
		return
	}
	job.Report.AddWarnings(id, res.Doc.Warnings)
	job.ArticleDone(len(res.Chunks), len(res.Doc.Sidecar), len(res.Doc.Warnings))
}

// Job returns a job by run id.
func (o *Orchestrator) Job(runID string) *Job {
	return o.jobs.Get(runID)
}

// Shredder exposes the shared shredder for on-demand single-article use.
func (o *Orchestrator) Shredder() *shred.Shredder { return o.shredder }

// ChunkerConfig returns the active sizing policy.
func (o *Orchestrator) ChunkerConfig() chunker.Config { return o.chunkCfg }
