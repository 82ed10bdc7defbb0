package registry

import (
	"context"
	"fmt"

	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/retention"
)

// RetentionResult captures a prune pass against one repository.
type RetentionResult struct {
	Provider string
	Repo     string
	Matched  int
	Kept     int
	Deleted  []string
	Errors   []error
}

// ApplyRetention lists all tags, filters by patterns, and applies the
// restic-style policy. Protected patterns should exclude release tags
// (e.g., ["!^v\\d"]); an empty pattern list makes every tag a candidate.
func ApplyRetention(ctx context.Context, reg Registry, repo string, patterns []string, policy config.RetentionPolicy) (*RetentionResult, error) {
	store := &registryStore{reg: reg, repo: repo}

	result, err := retention.Apply(ctx, store, patterns, policy)
	if err != nil {
		return &RetentionResult{Provider: reg.Provider(), Repo: repo}, err
	}

	return &RetentionResult{
		Provider: reg.Provider(),
		Repo:     repo,
		Matched:  result.Matched,
		Kept:     result.Kept,
		Deleted:  result.Deleted,
		Errors:   result.Errors,
	}, nil
}

// registryStore adapts Registry to the retention.Store interface.
type registryStore struct {
	reg  Registry
	repo string
}

func (s *registryStore) List(ctx context.Context) ([]retention.Item, error) {
	tags, err := s.reg.ListTags(ctx, s.repo)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	items := make([]retention.Item, len(tags))
	for i, t := range tags {
		items[i] = retention.Item{Name: t.Name, CreatedAt: t.CreatedAt}
	}
	return items, nil
}

func (s *registryStore) Delete(ctx context.Context, name string) error {
	return s.reg.DeleteTag(ctx, s.repo, name)
}
