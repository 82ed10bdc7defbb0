// Package retention implements a restic-style retention engine for image
// tags. The pipeline itself never garbage-collects: every run pushes a new
// commit-SHA tag. Retention is the explicit cleanup pass, with additive
// policies — a tag survives if ANY rule wants to keep it.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gantryci/gantry/src/config"
)

// Item is a named, timestamped entity that can be pruned.
type Item struct {
	Name      string
	CreatedAt time.Time
}

// Result captures what the retention engine did.
type Result struct {
	Matched int      // items matching the pattern set
	Kept    int      // items kept by policy
	Deleted []string // items successfully deleted
	Errors  []error  // errors from individual deletes
}

// Store abstracts listing and deleting items so the engine is testable
// without a live registry.
type Store interface {
	List(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, name string) error
}

// Apply lists all items, filters them by patterns (config.MatchPatterns
// syntax, including ! negation), sorts newest-first, applies the policy,
// and deletes items not kept.
func Apply(ctx context.Context, store Store, patterns []string, policy config.RetentionPolicy) (*Result, error) {
	if !policy.Active() {
		return nil, fmt.Errorf("retention: no active policy (all values zero)")
	}

	result := &Result{}

	items, err := store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("retention: listing items: %w", err)
	}

	var candidates []Item
	for _, item := range items {
		if config.MatchPatterns(patterns, item.Name) {
			candidates = append(candidates, item)
		}
	}
	result.Matched = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	keepSet := ApplyPolicies(candidates, policy)
	for _, keep := range keepSet {
		if keep {
			result.Kept++
		}
	}

	for i, item := range candidates {
		if keepSet[i] {
			continue
		}
		if err := store.Delete(ctx, item.Name); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("deleting %s: %w", item.Name, err))
		} else {
			result.Deleted = append(result.Deleted, item.Name)
		}
	}

	return result, nil
}

// ApplyPolicies evaluates all retention rules and returns a keep/prune
// decision per candidate. candidates must be sorted newest-first.
func ApplyPolicies(candidates []Item, policy config.RetentionPolicy) []bool {
	keepSet := make([]bool, len(candidates))

	if policy.KeepLast > 0 {
		for i := 0; i < len(candidates) && i < policy.KeepLast; i++ {
			keepSet[i] = true
		}
	}

	if policy.KeepDaily > 0 {
		applyTimeBucket(candidates, keepSet, policy.KeepDaily, truncateToDay)
	}
	if policy.KeepWeekly > 0 {
		applyTimeBucket(candidates, keepSet, policy.KeepWeekly, truncateToWeek)
	}
	if policy.KeepMonthly > 0 {
		applyTimeBucket(candidates, keepSet, policy.KeepMonthly, truncateToMonth)
	}
	if policy.KeepYearly > 0 {
		applyTimeBucket(candidates, keepSet, policy.KeepYearly, truncateToYear)
	}

	return keepSet
}

type bucketFn func(time.Time) time.Time

// applyTimeBucket keeps the newest item in each of the last N distinct
// time buckets. Items without timestamps (generic v2 registries) can only
// be kept by keep_last.
func applyTimeBucket(candidates []Item, keepSet []bool, count int, bucket bucketFn) {
	seen := make(map[time.Time]bool)

	for i, item := range candidates {
		if item.CreatedAt.IsZero() {
			continue
		}

		key := bucket(item.CreatedAt)
		if seen[key] {
			continue
		}

		seen[key] = true
		keepSet[i] = true

		if len(seen) >= count {
			break
		}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func truncateToWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	d := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func truncateToYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}
