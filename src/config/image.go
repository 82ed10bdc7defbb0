package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ImageConfig holds container image build and push configuration.
// The resolved image reference is
// {region}-docker.pkg.dev/{project}/{repository}/{name}:{sha}.
type ImageConfig struct {
	Name       string            `yaml:"name" toml:"name"`
	Repository string            `yaml:"repository" toml:"repository"`
	Dockerfile string            `yaml:"dockerfile" toml:"dockerfile"`
	Context    string            `yaml:"context" toml:"context"`
	Target     string            `yaml:"target" toml:"target"`
	Platforms  []string          `yaml:"platforms" toml:"platforms"`
	BuildArgs  map[string]string `yaml:"build_args" toml:"build_args"`

	// Provider selects the registry API for prune/tag operations:
	// gar (Google Artifact Registry), dockerhub, generic.
	Provider string `yaml:"provider" toml:"provider"`

	// Credentials is an env var prefix for registry API auth
	// (e.g., "GANTRY_REGISTRY" → GANTRY_REGISTRY_USER/GANTRY_REGISTRY_PASS).
	Credentials string `yaml:"credentials" toml:"credentials"`

	// ExtraTags are additional tag templates pushed alongside the commit
	// SHA tag (e.g., "{branch}", "{version}"). The SHA tag is always pushed.
	ExtraTags []string `yaml:"extra_tags" toml:"extra_tags"`

	// Push controls retry behavior on transient registry errors.
	Push PushConfig `yaml:"push" toml:"push"`

	// Scan gates the push on an image vulnerability scan.
	Scan ScanConfig `yaml:"scan" toml:"scan"`

	// Retention prunes old tags after a successful push. Additive
	// restic-style policies: a tag is kept if ANY rule wants it.
	Retention RetentionPolicy `yaml:"retention,omitempty" toml:"retention"`
}

// PushConfig controls image push retries.
type PushConfig struct {
	Attempts int           `yaml:"attempts" toml:"attempts"`
	Backoff  time.Duration `yaml:"backoff" toml:"backoff"`
}

// RetentionPolicy defines how many tags to keep using time-bucketed rules.
// A tag survives if ANY rule wants to keep it.
type RetentionPolicy struct {
	KeepLast    int `yaml:"keep_last" toml:"keep_last"`
	KeepDaily   int `yaml:"keep_daily" toml:"keep_daily"`
	KeepWeekly  int `yaml:"keep_weekly" toml:"keep_weekly"`
	KeepMonthly int `yaml:"keep_monthly" toml:"keep_monthly"`
	KeepYearly  int `yaml:"keep_yearly" toml:"keep_yearly"`
}

// Active returns true if any retention rule is configured.
func (r RetentionPolicy) Active() bool {
	return r.KeepLast > 0 || r.KeepDaily > 0 || r.KeepWeekly > 0 || r.KeepMonthly > 0 || r.KeepYearly > 0
}

// UnmarshalYAML accepts both a plain integer (shorthand for keep_last)
// and a full policy map:
//
//	retention: 10
//
//	retention:
//	  keep_last: 3
//	  keep_weekly: 4
func (r *RetentionPolicy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var n int
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("retention: expected integer or policy map, got %q", value.Value)
		}
		r.KeepLast = n
		return nil
	}

	if value.Kind == yaml.MappingNode {
		// Alias type avoids infinite recursion.
		type policyAlias RetentionPolicy
		var alias policyAlias
		if err := value.Decode(&alias); err != nil {
			return fmt.Errorf("retention: %w", err)
		}
		*r = RetentionPolicy(alias)
		return nil
	}

	return fmt.Errorf("retention: expected integer or map, got YAML kind %d", value.Kind)
}

// DefaultImageConfig returns sensible defaults for image builds.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		Dockerfile: "Dockerfile",
		Context:    ".",
		Provider:   "gar",
		BuildArgs:  map[string]string{},
		Push: PushConfig{
			Attempts: 3,
			Backoff:  2 * time.Second,
		},
		Scan: DefaultScanConfig(),
	}
}
