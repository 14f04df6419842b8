package thermalcore

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchJob is one independent run.
type BatchJob struct {
	ID      string
	Specs   Specifications
	Options ModelOptions
	Profile Profile
}

type BatchResult struct {
	ID       string
	Output   Output
	Err      error
	Duration time.Duration
}

// RunBatch runs the jobs with at most limit in flight and returns their
// results in job order. A failing job records its error and the others carry
// on. Once ctx is done no further job starts; those left out carry the context
// error, which is also returned.
func RunBatch(ctx context.Context, jobs []BatchJob, limit int) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		results[i].ID = job.ID
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			// g.Go may have waited for a free slot.
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			start := time.Now()
			results[i].Output, results[i].Err = runJob(job)
			results[i].Duration = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func runJob(job BatchJob) (Output, error) {
	m, err := NewModel(job.Specs, job.Options)
	if err != nil {
		return Output{}, err
	}
	return m.Run(job.Profile)
}
