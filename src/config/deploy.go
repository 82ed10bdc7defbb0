package config

import "time"

// DeployConfig holds manifest paths and rollout verification settings.
type DeployConfig struct {
	// Manifests are the declarative documents applied to the cluster,
	// in author order. Actual apply order is resolved by dependency
	// ranking (workloads before routing).
	Manifests []string `yaml:"manifests" toml:"manifests"`

	Namespace string `yaml:"namespace" toml:"namespace"`

	// Branches gates deploys by branch name. Standard pattern syntax:
	// regex, literal, or !negated. Empty = deploy from any branch.
	Branches []string `yaml:"branches" toml:"branches"`

	// Verify controls post-apply rollout verification.
	Verify VerifyConfig `yaml:"verify" toml:"verify"`

	// SecretScan gates apply on a gitleaks scan of the manifests.
	SecretScan *bool `yaml:"secret_scan" toml:"secret_scan"`
}

// VerifyConfig controls the rollout wait after apply.
type VerifyConfig struct {
	Enabled *bool         `yaml:"enabled" toml:"enabled"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// Active returns true unless verification is explicitly disabled.
func (v VerifyConfig) Active() bool {
	return v.Enabled == nil || *v.Enabled
}

// ScanActive returns true unless secret scanning is explicitly disabled.
func (d DeployConfig) ScanActive() bool {
	return d.SecretScan == nil || *d.SecretScan
}

// DefaultDeployConfig returns sensible defaults: verify rollouts with a
// five-minute budget, scan manifests, deploy only from main.
func DefaultDeployConfig() DeployConfig {
	return DeployConfig{
		Namespace: "default",
		Branches:  []string{"^main$"},
		Verify: VerifyConfig{
			Timeout: 5 * time.Minute,
		},
	}
}
