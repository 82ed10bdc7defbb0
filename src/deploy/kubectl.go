// Package deploy applies manifest documents to the cluster and verifies
// rollouts. Apply is declarative and unconditional: the cluster's
// reconciliation loop owns the actual rollout, and re-applying an
// unchanged document is a no-op.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Kubectl wraps kubectl invocations against a run-scoped kubeconfig.
type Kubectl struct {
	Kubeconfig string // empty = ambient kubeconfig
	Namespace  string
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// NewKubectl creates a Kubectl runner.
func NewKubectl(kubeconfig, namespace string, verbose bool) *Kubectl {
	return &Kubectl{
		Kubeconfig: kubeconfig,
		Namespace:  namespace,
		Verbose:    verbose,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Apply applies a single document from stdin. A manifest referencing a
// nonexistent image tag still applies cleanly — only runtime readiness
// fails, and that is the verifier's concern.
func (k *Kubectl) Apply(ctx context.Context, raw []byte) error {
	args := k.args("apply", "-f", "-")
	if k.Verbose {
		fmt.Fprintf(k.Stderr, "exec: kubectl %s\n", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "kubectl", args...)
	cmd.Stdin = bytes.NewReader(raw)
	cmd.Stdout = k.Stdout
	cmd.Stderr = k.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("kubectl apply: %w", err)
	}
	return nil
}

// RolloutStatus blocks until the workload's rollout completes or the
// timeout expires.
func (k *Kubectl) RolloutStatus(ctx context.Context, kind, name string, timeout time.Duration) error {
	args := k.args("rollout", "status",
		fmt.Sprintf("%s/%s", strings.ToLower(kind), name),
		fmt.Sprintf("--timeout=%s", timeout))
	if k.Verbose {
		fmt.Fprintf(k.Stderr, "exec: kubectl %s\n", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "kubectl", args...)
	cmd.Stdout = k.Stdout
	cmd.Stderr = k.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rollout of %s/%s did not complete: %w", kind, name, err)
	}
	return nil
}

// Get returns the raw output of kubectl get for a resource.
func (k *Kubectl) Get(ctx context.Context, kind, name string) (string, error) {
	args := k.args("get", strings.ToLower(kind), name, "-o", "wide")
	cmd := exec.CommandContext(ctx, "kubectl", args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("kubectl get %s/%s: %w", kind, name, err)
	}
	return string(out), nil
}

// args prepends kubeconfig and namespace flags to a kubectl invocation.
func (k *Kubectl) args(verb string, rest ...string) []string {
	var args []string
	if k.Kubeconfig != "" {
		args = append(args, "--kubeconfig", k.Kubeconfig)
	}
	if k.Namespace != "" {
		args = append(args, "--namespace", k.Namespace)
	}
	args = append(args, verb)
	return append(args, rest...)
}
