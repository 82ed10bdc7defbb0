package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Runner executes build plans by invoking the external build tool.
type Runner struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewRunner creates a Runner with default output writers.
func NewRunner(verbose bool) *Runner {
	return &Runner{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run executes a build plan. Build failure is fatal: the error is returned
// as-is with no retry.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()
	result := &Result{Tool: plan.Tool}

	if plan.CacheDir != "" {
		hit, err := restoreCache(plan.CacheDir)
		if err != nil {
			// Cache is best-effort — log and continue with a cold build.
			result.CacheSkip = true
			if r.Verbose {
				fmt.Fprintf(r.Stderr, "cache: %v, continuing without\n", err)
			}
		}
		result.CacheHit = hit
	} else {
		result.CacheSkip = true
	}

	if r.Verbose {
		fmt.Fprintf(r.Stderr, "exec: %s %s\n", plan.Command, strings.Join(plan.Args, " "))
	}

	cmd := exec.CommandContext(ctx, plan.Command, plan.Args...)
	cmd.Dir = plan.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(plan.Env) > 0 {
		cmd.Env = append(os.Environ(), plan.Env...)
	}

	if err := cmd.Run(); err != nil {
		result.Status = "failed"
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("%s build failed: %w", plan.Tool, err)
		return result, result.Error
	}

	artifact, err := resolveArtifact(plan.Dir, plan.Artifact)
	if err != nil {
		result.Status = "failed"
		result.Duration = time.Since(start)
		result.Error = err
		return result, err
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	result.Artifact = artifact
	return result, nil
}

// resolveArtifact expands the artifact glob and returns the newest match.
func resolveArtifact(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid artifact glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("build produced no artifact matching %q", pattern)
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, iErr := os.Stat(matches[i])
		fj, jErr := os.Stat(matches[j])
		if iErr != nil || jErr != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], nil
}
