package image

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/retry"
)

// Step is a single image build invocation.
type Step struct {
	Dockerfile string
	Context    string
	Target     string
	Platforms  []string
	BuildArgs  map[string]string
	Refs       []Ref
	Load       bool // --load into daemon (local builds)
	Push       bool // --push (multi-platform builds)
}

// Result captures the outcome of a build or push.
type Result struct {
	Status   string
	Duration time.Duration
	Images   []string
	Error    error
}

// Buildx wraps docker buildx commands.
type Buildx struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewBuildx creates a Buildx runner with default output writers.
func NewBuildx(verbose bool) *Buildx {
	return &Buildx{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Build executes a build step via docker buildx.
func (bx *Buildx) Build(ctx context.Context, step Step) (*Result, error) {
	start := time.Now()
	result := &Result{}

	args := bx.buildArgs(step)

	if bx.Verbose {
		fmt.Fprintf(bx.Stderr, "exec: docker %s\n", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = bx.Stdout
	cmd.Stderr = bx.Stderr

	if err := cmd.Run(); err != nil {
		result.Status = "failed"
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("docker buildx build failed: %w", err)
		return result, result.Error
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	for _, ref := range step.Refs {
		result.Images = append(result.Images, ref.String())
	}
	return result, nil
}

// PushRefs pushes image references one by one. Transient registry or
// network errors are retried with exponential backoff; the original
// workflow required a manual re-run here.
func (bx *Buildx) PushRefs(ctx context.Context, refs []Ref, policy config.PushConfig) (*Result, error) {
	start := time.Now()
	result := &Result{}

	for _, ref := range refs {
		push := func(ctx context.Context) error {
			if bx.Verbose {
				fmt.Fprintf(bx.Stderr, "exec: docker push %s\n", ref)
			}
			cmd := exec.CommandContext(ctx, "docker", "push", ref.String())
			cmd.Stdout = bx.Stdout
			cmd.Stderr = bx.Stderr
			return cmd.Run()
		}

		err := retry.Do(ctx, retry.Policy{
			Attempts: policy.Attempts,
			Backoff:  policy.Backoff,
		}, push)
		if err != nil {
			result.Status = "failed"
			result.Duration = time.Since(start)
			result.Error = fmt.Errorf("pushing %s: %w", ref, err)
			return result, result.Error
		}
		result.Images = append(result.Images, ref.String())
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	return result, nil
}

// buildArgs constructs the docker buildx build argument list.
func (bx *Buildx) buildArgs(step Step) []string {
	args := []string{"buildx", "build"}

	if step.Dockerfile != "" {
		args = append(args, "--file", step.Dockerfile)
	}
	if step.Target != "" {
		args = append(args, "--target", step.Target)
	}
	if len(step.Platforms) > 0 {
		args = append(args, "--platform", strings.Join(step.Platforms, ","))
	}
	for k, v := range step.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}
	for _, ref := range step.Refs {
		args = append(args, "--tag", ref.String())
	}

	switch {
	case step.Push:
		args = append(args, "--push")
	case step.Load:
		args = append(args, "--load")
	}

	buildContext := step.Context
	if buildContext == "" {
		buildContext = "."
	}
	args = append(args, buildContext)

	return args
}

// EnsureBuilder checks that a buildx builder is available and creates one
// if needed.
func (bx *Buildx) EnsureBuilder(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "buildx", "inspect")
	if err := cmd.Run(); err != nil {
		create := exec.CommandContext(ctx, "docker", "buildx", "create", "--use", "--name", "gantry")
		create.Stdout = bx.Stderr
		create.Stderr = bx.Stderr
		if createErr := create.Run(); createErr != nil {
			return fmt.Errorf("creating buildx builder: %w", createErr)
		}
	}
	return nil
}

// IsMultiPlatform reports whether a step targets more than one platform.
// Multi-platform images cannot be loaded into the local daemon.
func IsMultiPlatform(step Step) bool {
	return len(step.Platforms) > 1
}
