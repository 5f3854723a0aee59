// Package worker is the reference enrichment worker: it polls the core for
// pending enrichment jobs, fetches skill contents from the source host and
// reports results back. Analysis execution lives in the attested enclave
// workers and is out of scope here; this binary only exercises the
// enrichment half of the queue protocol.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"skillscope/internal/domain"
)

// coreAPI is the slice of the core's queue protocol the worker drives.
type coreAPI interface {
	ClaimEnrichmentJobs(ctx context.Context, limit int) ([]domain.PendingEnrichmentJob, error)
	SubmitResult(ctx context.Context, jobID string, result domain.EnrichmentResult) error
	SubmitError(ctx context.Context, jobID, message string) error
}

// skillFetcher locates a skill's files on the source host.
type skillFetcher interface {
	Fetch(job domain.PendingEnrichmentJob) (FetchOutcome, error)
}

type Worker struct {
	core    coreAPI
	fetcher skillFetcher
	logger  *log.Logger

	interval   time.Duration
	claimLimit int
	fetchers   int
	rateLimit  int

	jobs chan domain.PendingEnrichmentJob
	wg   sync.WaitGroup
}

type Options struct {
	Interval   time.Duration
	ClaimLimit int
	Fetchers   int
	RateLimit  int
}

func New(core coreAPI, fetcher skillFetcher, logger *log.Logger, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.ClaimLimit <= 0 {
		opts.ClaimLimit = 10
	}
	if opts.Fetchers <= 0 {
		opts.Fetchers = 4
	}
	return &Worker{
		core:       core,
		fetcher:    fetcher,
		logger:     logger,
		interval:   opts.Interval,
		claimLimit: opts.ClaimLimit,
		fetchers:   opts.Fetchers,
		rateLimit:  opts.RateLimit,
		jobs:       make(chan domain.PendingEnrichmentJob, opts.ClaimLimit*2),
	}
}

// Run claims jobs on the poll interval and fans them out to the fetch
// goroutines until the context is cancelled. In-flight fetches are drained
// before Run returns so no claimed job is silently abandoned.
func (w *Worker) Run(ctx context.Context) error {
	// One shared ticker caps fetch starts across all goroutines, keeping the
	// load on the source host bounded no matter how many jobs are claimed.
	var rate <-chan time.Time
	if w.rateLimit > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(w.rateLimit))
		defer ticker.Stop()
		rate = ticker.C
	}

	w.wg.Add(w.fetchers)
	for i := 0; i < w.fetchers; i++ {
		go func() {
			defer w.wg.Done()
			for job := range w.jobs {
				if rate != nil {
					// Stop rate-waiting once cancelled; the job is still
					// processed so it reaches a terminal outcome.
					select {
					case <-ctx.Done():
					case <-rate:
					}
				}
				// Submissions are detached from cancellation so a job
				// drained during shutdown can still be reported.
				w.process(context.WithoutCancel(ctx), job)
			}
		}()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.pollOnce(ctx)
		select {
		case <-ctx.Done():
			close(w.jobs)
			w.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	jobs, err := w.core.ClaimEnrichmentJobs(ctx, w.claimLimit)
	if err != nil {
		w.logger.Printf("claim error | error=%v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	w.logger.Printf("claimed jobs | count=%d", len(jobs))
	for _, job := range jobs {
		w.jobs <- job
	}
}

// process resolves one claimed job to a terminal outcome: a found/not-found
// result, or a reported error the requester can see. The core treats a
// retried submission against an already-terminal job as a no-op, so failures
// here are safe to log and move past.
func (w *Worker) process(ctx context.Context, job domain.PendingEnrichmentJob) {
	outcome, err := w.fetcher.Fetch(job)
	if err != nil {
		if subErr := w.core.SubmitError(ctx, job.JobID, err.Error()); subErr != nil {
			w.logger.Printf("submit error failed | job=%s skill=%s error=%v", job.JobID, job.SkillID, subErr)
		}
		return
	}

	result := domain.EnrichmentResult{Found: outcome.Found, FilesFound: outcome.Files}
	if outcome.Found {
		result.Content = &outcome.Content
		result.SourceURL = &outcome.SourceURL
	}
	if err := w.core.SubmitResult(ctx, job.JobID, result); err != nil {
		w.logger.Printf("submit result failed | job=%s skill=%s error=%v", job.JobID, job.SkillID, err)
		return
	}
	w.logger.Printf("enriched | job=%s skill=%s found=%v files=%d", job.JobID, job.SkillID, outcome.Found, len(outcome.Files))
}
