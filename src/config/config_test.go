package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadNoConfigFileReturnsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if cfg.Build.Tool != "maven" {
		t.Errorf("build.tool = %q, want maven", cfg.Build.Tool)
	}
	if cfg.Deploy.Namespace != "default" {
		t.Errorf("deploy.namespace = %q, want default", cfg.Deploy.Namespace)
	}
	if cfg.Deploy.Verify.Timeout != 5*time.Minute {
		t.Errorf("verify timeout = %v, want 5m", cfg.Deploy.Verify.Timeout)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("an explicitly named config file that does not exist must error, not default")
	}
}

func TestClusterProject(t *testing.T) {
	cfg := &Config{Project: "acme-prod"}
	if got := cfg.ClusterProject(); got != "acme-prod" {
		t.Errorf("ClusterProject() = %q, want top-level project", got)
	}

	cfg.Cluster.Project = "acme-clusters"
	if got := cfg.ClusterProject(); got != "acme-clusters" {
		t.Errorf("ClusterProject() = %q, want the per-cluster override", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, ".gantry.yml", `
version: 1
project: acme-prod
region: europe-west1
build:
  tool: gradle
  skip_tests: true
image:
  name: orders
  repository: services
  extra_tags: ["{branch}"]
cluster:
  name: prod-cluster
  zone: europe-west1-b
deploy:
  manifests:
    - k8s/deployment.yaml
    - k8s/service.yaml
  namespace: orders
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Project != "acme-prod" {
		t.Errorf("project = %q", cfg.Project)
	}
	if cfg.Build.Tool != "gradle" || !cfg.Build.SkipTests {
		t.Errorf("build = %+v", cfg.Build)
	}
	if cfg.Image.Name != "orders" || cfg.Image.Repository != "services" {
		t.Errorf("image = %+v", cfg.Image)
	}
	// Unset fields keep their defaults.
	if cfg.Image.Dockerfile != "Dockerfile" {
		t.Errorf("dockerfile = %q, want default", cfg.Image.Dockerfile)
	}
	if cfg.Image.Push.Attempts != 3 {
		t.Errorf("push.attempts = %d, want default 3", cfg.Image.Push.Attempts)
	}
	if len(cfg.Deploy.Manifests) != 2 {
		t.Errorf("manifests = %v", cfg.Deploy.Manifests)
	}
	if cfg.Deploy.Namespace != "orders" {
		t.Errorf("namespace = %q", cfg.Deploy.Namespace)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, ".gantry.toml", `
version = 1
project = "acme-prod"
region = "us-central1"

[image]
name = "orders"
repository = "services"

[cluster]
name = "prod"
zone = "us-central1-a"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region != "us-central1" {
		t.Errorf("region = %q", cfg.Region)
	}
	if cfg.Cluster.Name != "prod" {
		t.Errorf("cluster.name = %q", cfg.Cluster.Name)
	}
}

func TestRetentionShorthand(t *testing.T) {
	path := writeConfig(t, ".gantry.yml", `
image:
  retention: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image.Retention.KeepLast != 10 {
		t.Errorf("keep_last = %d, want 10", cfg.Image.Retention.KeepLast)
	}
	if !cfg.Image.Retention.Active() {
		t.Error("retention should be active")
	}
}

func TestRetentionPolicyMap(t *testing.T) {
	path := writeConfig(t, ".gantry.yml", `
image:
  retention:
    keep_last: 3
    keep_weekly: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := cfg.Image.Retention
	if r.KeepLast != 3 || r.KeepWeekly != 4 {
		t.Errorf("retention = %+v", r)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, ".gantry.yml", "image: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func validConfig() *Config {
	cfg := defaults()
	cfg.Project = "acme"
	cfg.Region = "europe-west1"
	cfg.Image.Name = "orders"
	cfg.Image.Repository = "services"
	cfg.Cluster.Name = "prod"
	cfg.Cluster.Zone = "europe-west1-b"
	cfg.Deploy.Manifests = []string{"k8s/deployment.yaml"}
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	warnings, err := Validate(validConfig())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing project", func(c *Config) { c.Project = "" }, "project"},
		{"missing region", func(c *Config) { c.Region = "" }, "region"},
		{"bad tool", func(c *Config) { c.Build.Tool = "ant" }, "build.tool"},
		{"missing image name", func(c *Config) { c.Image.Name = "" }, "image.name"},
		{"bad provider", func(c *Config) { c.Image.Provider = "quay" }, "image.provider"},
		{"zero push attempts", func(c *Config) { c.Image.Push.Attempts = 0 }, "image.push.attempts"},
		{"missing cluster", func(c *Config) { c.Cluster.Name = "" }, "cluster.name"},
		{"no manifests", func(c *Config) { c.Deploy.Manifests = nil }, "deploy.manifests"},
		{"absolute manifest", func(c *Config) { c.Deploy.Manifests = []string{"/etc/k8s.yaml"} }, "relative"},
		{"manifest escape", func(c *Config) { c.Deploy.Manifests = []string{"../other/k8s.yaml"} }, ".."},
		{"duplicate manifest", func(c *Config) {
			c.Deploy.Manifests = []string{"k8s/a.yaml", "k8s/a.yaml"}
		}, "duplicate"},
		{"bad verify timeout", func(c *Config) { c.Deploy.Verify.Timeout = 0 }, "verify.timeout"},
		{"archive without bucket", func(c *Config) { c.Archive.Endpoint = "s3.local" }, "archive.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBucketWithoutEndpointWarns(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Bucket = "builds"

	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
}
