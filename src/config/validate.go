package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

var validTools = map[string]bool{
	"maven":  true,
	"gradle": true,
}

var validProviders = map[string]bool{
	"gar":       true,
	"dockerhub": true,
	"generic":   true,
}

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("version: must be 1, got %d", cfg.Version))
	}

	if cfg.Project == "" {
		errs = append(errs, "project: is required")
	}
	if cfg.Region == "" {
		errs = append(errs, "region: is required")
	}

	// ── Build ─────────────────────────────────────────────────────────────

	if cfg.Build.Tool != "" && !validTools[cfg.Build.Tool] {
		errs = append(errs, fmt.Sprintf("build.tool: unknown tool %q (supported: maven, gradle)", cfg.Build.Tool))
	}

	// ── Image ─────────────────────────────────────────────────────────────

	if cfg.Image.Name == "" {
		errs = append(errs, "image.name: is required")
	}
	if cfg.Image.Repository == "" {
		errs = append(errs, "image.repository: is required")
	}
	if cfg.Image.Provider != "" && !validProviders[cfg.Image.Provider] {
		errs = append(errs, fmt.Sprintf("image.provider: unknown provider %q (supported: gar, dockerhub, generic)", cfg.Image.Provider))
	}
	if cfg.Image.Push.Attempts < 1 {
		errs = append(errs, fmt.Sprintf("image.push.attempts: must be at least 1, got %d", cfg.Image.Push.Attempts))
	}

	// ── Cluster ───────────────────────────────────────────────────────────

	if cfg.Cluster.Name == "" {
		errs = append(errs, "cluster.name: is required")
	}
	if cfg.Cluster.Zone == "" {
		errs = append(errs, "cluster.zone: is required")
	}

	// ── Deploy ────────────────────────────────────────────────────────────

	if len(cfg.Deploy.Manifests) == 0 {
		errs = append(errs, "deploy.manifests: at least one manifest is required")
	}
	seen := make(map[string]bool)
	for i, m := range cfg.Deploy.Manifests {
		mpath := fmt.Sprintf("deploy.manifests[%d]", i)
		if m == "" {
			errs = append(errs, fmt.Sprintf("%s: path is empty", mpath))
			continue
		}
		if filepath.IsAbs(m) {
			errs = append(errs, fmt.Sprintf("%s: path %q must be relative to the repository root", mpath, m))
		}
		if strings.Contains(m, "..") {
			errs = append(errs, fmt.Sprintf("%s: path %q must not contain '..'", mpath, m))
		}
		clean := filepath.Clean(m)
		if seen[clean] {
			errs = append(errs, fmt.Sprintf("%s: duplicate manifest %q", mpath, m))
		}
		seen[clean] = true
	}
	if cfg.Deploy.Verify.Active() && cfg.Deploy.Verify.Timeout <= 0 {
		errs = append(errs, "deploy.verify.timeout: must be positive when verification is enabled")
	}

	// ── Archive ───────────────────────────────────────────────────────────

	if cfg.Archive.Endpoint != "" && cfg.Archive.Bucket == "" {
		errs = append(errs, "archive.bucket: required when archive.endpoint is set")
	}
	if cfg.Archive.Bucket != "" && cfg.Archive.Endpoint == "" {
		warnings = append(warnings, "archive.bucket set without archive.endpoint; archival stays disabled")
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}
