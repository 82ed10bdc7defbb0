package deploy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gantryci/gantry/src/manifest"
)

// Deployer applies an ordered manifest set and verifies workload rollouts.
type Deployer struct {
	Kubectl *Kubectl

	// VerifyTimeout bounds each workload's rollout wait. Zero disables
	// verification, restoring the original fire-and-forget behavior.
	VerifyTimeout time.Duration
}

// AppliedDoc records the outcome for one document.
type AppliedDoc struct {
	Doc      *manifest.Document
	Duration time.Duration
}

// Apply applies documents strictly in the given order. The first failure
// aborts: already-applied documents stay applied (no rollback — the next
// successful run converges the cluster).
func (d *Deployer) Apply(ctx context.Context, docs []*manifest.Document) ([]AppliedDoc, error) {
	applied := make([]AppliedDoc, 0, len(docs))
	for _, doc := range docs {
		start := time.Now()
		if err := d.Kubectl.Apply(ctx, doc.Raw); err != nil {
			return applied, fmt.Errorf("applying %s: %w", doc.Display(), err)
		}
		applied = append(applied, AppliedDoc{Doc: doc, Duration: time.Since(start)})
	}
	return applied, nil
}

// Verify waits for every workload in the set to finish rolling out.
// Workloads are watched concurrently; the first failure cancels the rest.
func (d *Deployer) Verify(ctx context.Context, docs []*manifest.Document) error {
	if d.VerifyTimeout <= 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, doc := range docs {
		if !manifest.IsWorkload(doc.Kind) {
			continue
		}
		g.Go(func() error {
			return d.Kubectl.RolloutStatus(gCtx, doc.Kind, doc.Name, d.VerifyTimeout)
		})
	}
	return g.Wait()
}

// Workloads returns the workload documents of a set.
func Workloads(docs []*manifest.Document) []*manifest.Document {
	var out []*manifest.Document
	for _, doc := range docs {
		if manifest.IsWorkload(doc.Kind) {
			out = append(out, doc)
		}
	}
	return out
}
