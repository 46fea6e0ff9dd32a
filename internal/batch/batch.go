// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs many independent generations concurrently on a bounded
// worker pool. Each job gets its own generation state; jobs share nothing
// but the generator.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/pkg/types"
)

// DefaultParallelism is used when the configured parallelism is not positive.
const DefaultParallelism = 4

// Generator produces one document. *generate.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req types.GenerationRequest, onProgress generate.ProgressFunc) (*types.Document, error)
}

// Job is one generation in a batch.
type Job struct {
	ID      string
	Name    string
	Request types.GenerationRequest
}

// Result is the outcome of one job.
type Result struct {
	Job      Job
	Document *types.Document
	Err      error
	Elapsed  time.Duration
}

// Outcome classifies the result.
func (r Result) Outcome() generate.Outcome {
	return generate.OutcomeOf(r.Err)
}

// Summary counts results by outcome.
type Summary struct {
	Succeeded int
	Failed    int
}

// Runner executes jobs with bounded parallelism.
type Runner struct {
	gen         Generator
	parallelism int
	logger      *zap.Logger
}

// NewRunner returns a Runner. A non-positive parallelism selects
// DefaultParallelism.
func NewRunner(gen Generator, parallelism int, logger *zap.Logger) *Runner {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{gen: gen, parallelism: parallelism, logger: logger}
}

// Run executes jobs and returns their results in job order. onDone, when
// non-nil, is called once per finished job; calls are serialized. Jobs
// without an ID get a random one in their Result; jobs itself is not
// modified. Cancelling ctx fails the jobs still
// running or queued with generate.ErrServiceUnavailable.
func (r *Runner) Run(ctx context.Context, jobs []Job, onDone func(Result)) ([]Result, Summary, error) {
	pool, err := ants.NewPool(r.parallelism)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(jobs))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	finish := func(i int, res Result) {
		results[i] = res
		mu.Lock()
		defer mu.Unlock()
		if onDone != nil {
			onDone(res)
		}
	}

	for i := range jobs {
		job := jobs[i]
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		idx := i

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			start := time.Now()
			doc, err := r.gen.Generate(ctx, job.Request, nil)
			res := Result{Job: job, Document: doc, Err: err, Elapsed: time.Since(start)}
			r.logger.Info("batch job finished",
				zap.String("job", job.Name),
				zap.String("id", job.ID),
				zap.String("kind", string(job.Request.Kind)),
				zap.String("outcome", string(res.Outcome())),
				zap.Duration("elapsed", res.Elapsed))
			finish(idx, res)
		})
		if err != nil {
			wg.Done()
			finish(idx, Result{Job: job, Err: fmt.Errorf("submitting job %s: %w", job.Name, err)})
		}
	}
	wg.Wait()

	var sum Summary
	for _, res := range results {
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	return results, sum, nil
}
