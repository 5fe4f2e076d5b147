package ingest

import (
	"context"
	"fmt"

	"registercore/pkg/domain"
)

// Report is the single completion message of one import run. Either Err
// is set (the whole source failed, nothing was committed) or Imported
// and Rejected describe the committed batch.
type Report struct {
	Register domain.RegisterType
	Imported int
	Rejected []Reject
	Err      error
}

// Runner executes imports off the caller's control path. Canonical rows
// are computed without touching the store; exactly one CreateMany
// commits the batch, so concurrent readers only ever see the prior,
// fully consistent table or the new one.
type Runner struct {
	store      domain.RecordStore
	normalizer *Normalizer
}

// NewRunner constructs a runner over the given store and normalizer.
func NewRunner(store domain.RecordStore, normalizer *Normalizer) *Runner {
	return &Runner{store: store, normalizer: normalizer}
}

// Run starts the import in a goroutine and returns a channel that
// receives exactly one Report. There is no cancellation contract beyond
// ctx: a failure surfaces as a single ErrImportAborted report with no
// partial commit.
func (r *Runner) Run(ctx context.Context, rt domain.RegisterType, t Table) <-chan Report {
	done := make(chan Report, 1)
	go func() {
		done <- r.runOnce(ctx, rt, t)
	}()
	return done
}

// RunSync executes the import on the caller's goroutine.
func (r *Runner) RunSync(ctx context.Context, rt domain.RegisterType, t Table) Report {
	return r.runOnce(ctx, rt, t)
}

func (r *Runner) runOnce(ctx context.Context, rt domain.RegisterType, t Table) Report {
	report := Report{Register: rt}
	records, rejected, err := r.normalizer.Normalize(rt, t)
	if err != nil {
		report.Err = fmt.Errorf("%w: %v", domain.ErrImportAborted, err)
		return report
	}
	if err := r.store.CreateMany(ctx, rt, records); err != nil {
		report.Err = fmt.Errorf("%w: %v", domain.ErrImportAborted, err)
		return report
	}
	report.Imported = len(records)
	report.Rejected = rejected
	return report
}
