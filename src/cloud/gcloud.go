// Package cloud wraps the gcloud CLI for service-account authentication,
// docker credential wiring, and GKE cluster credential acquisition.
// Authentication failures are fatal for the run.
package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GCloud runs gcloud commands against a fixed project.
type GCloud struct {
	Project string
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer

	// env overrides passed to every invocation (KUBECONFIG etc).
	env []string
}

// New creates a GCloud runner for a project.
func New(project string, verbose bool) *GCloud {
	return &GCloud{
		Project: project,
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// ActivateServiceAccount exchanges a stored service-account key for a
// cloud session. keyFile falls back to GOOGLE_APPLICATION_CREDENTIALS;
// with neither set, ambient gcloud auth is assumed and nothing is done.
func (g *GCloud) ActivateServiceAccount(ctx context.Context, keyFile string) error {
	key := ResolveKeyFile(keyFile)
	if key == "" {
		return nil // ambient auth (workload identity, gcloud login)
	}
	if _, err := os.Stat(key); err != nil {
		return fmt.Errorf("service account key: %w", err)
	}

	return g.run(ctx, "auth", "activate-service-account", "--key-file", key)
}

// ConfigureDocker registers gcloud as the docker credential helper for the
// given registry host so buildx pushes authenticate.
func (g *GCloud) ConfigureDocker(ctx context.Context, host string) error {
	return g.run(ctx, "auth", "configure-docker", host, "--quiet")
}

// GetClusterCredentials fetches short-lived cluster access credentials
// into kubeconfigPath. The credential is scoped to the run: callers write
// it under a run temp dir and remove it afterward.
func (g *GCloud) GetClusterCredentials(ctx context.Context, cluster, zone, kubeconfigPath string) error {
	g.env = append(g.env, "KUBECONFIG="+kubeconfigPath)
	return g.run(ctx, "container", "clusters", "get-credentials", cluster,
		"--zone", zone, "--project", g.Project)
}

// AccessToken returns an OAuth2 access token for registry API calls.
func (g *GCloud) AccessToken(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "gcloud", "auth", "print-access-token")
	cmd.Env = append(os.Environ(), g.env...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("gcloud auth print-access-token: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *GCloud) run(ctx context.Context, args ...string) error {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "exec: gcloud %s\n", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "gcloud", args...)
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr
	cmd.Env = append(os.Environ(), g.env...)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gcloud %s: %w", args[0], err)
	}
	return nil
}

// CleanupKubeconfig removes a run-scoped kubeconfig written by
// GetClusterCredentials. It refuses paths outside the temp dir or without
// the run prefix, so a caller can never delete a real kubeconfig.
func CleanupKubeconfig(path string) error {
	if path == "" {
		return nil
	}
	dir, base := filepath.Split(path)
	if filepath.Clean(dir) != filepath.Clean(os.TempDir()) || !strings.HasPrefix(base, "gantry-kubeconfig-") {
		return fmt.Errorf("not a run kubeconfig: %s", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ResolveKeyFile returns the service-account key path from config or the
// GOOGLE_APPLICATION_CREDENTIALS environment variable.
func ResolveKeyFile(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
}
