// Package pipeline sequences the deployment stages. Control flow is
// strictly sequential: no parallel stages, no conditional branching, and
// the first fatal failure aborts the run with no rollback. Two overlapping
// runs are not serialized — the cluster's optimistic concurrency decides
// the last writer.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/gantryci/gantry/src/output"
)

// Stage is one sequential step of the pipeline. Run returns a one-line
// summary for the final table.
type Stage struct {
	Name string

	// Skip, when non-nil and returning true, marks the stage skipped
	// with the given reason instead of running it.
	Skip func(rc *RunContext) (bool, string)

	Run func(ctx context.Context, rc *RunContext) (summary string, err error)
}

// StageResult records one stage's outcome.
type StageResult struct {
	Name     string
	Status   string // success, failed, skipped
	Summary  string
	Duration time.Duration
}

// Runner executes stages in order, rendering grouped sections as it goes.
type Runner struct {
	Stages []Stage
	Out    io.Writer
}

// Run executes all stages. Returns the per-stage results and the first
// fatal error, if any. Results always cover every attempted stage so the
// summary table can be rendered after a failure.
func (r *Runner) Run(ctx context.Context, rc *RunContext) ([]StageResult, error) {
	results := make([]StageResult, 0, len(r.Stages))

	for _, stage := range r.Stages {
		if stage.Skip != nil {
			if skip, reason := stage.Skip(rc); skip {
				results = append(results, StageResult{
					Name:    stage.Name,
					Status:  "skipped",
					Summary: reason,
				})
				continue
			}
		}

		output.GroupStart(r.Out, "gantry_"+stage.Name, stage.Name)
		start := time.Now()
		summary, err := stage.Run(ctx, rc)
		elapsed := time.Since(start)
		output.GroupEnd(r.Out, "gantry_"+stage.Name)

		if err != nil {
			results = append(results, StageResult{
				Name:     stage.Name,
				Status:   "failed",
				Summary:  err.Error(),
				Duration: elapsed,
			})
			return results, fmt.Errorf("%s: %w", stage.Name, err)
		}

		results = append(results, StageResult{
			Name:     stage.Name,
			Status:   "success",
			Summary:  summary,
			Duration: elapsed,
		})
	}

	return results, nil
}

// RenderSummary writes the final stage table.
func RenderSummary(w io.Writer, results []StageResult, total time.Duration, color bool) {
	sec := output.NewSection(w, "Summary", 0, color)
	overall := "success"
	for _, res := range results {
		sec.Status(res.Name, res.Status, res.Summary)
		if res.Status == "failed" {
			overall = "failed"
		}
	}
	sec.Separator()
	sec.Total(total, overall)
	sec.Close()
}

// NewRunID returns the run correlation ID.
func NewRunID() string {
	return uuid.NewString()
}
