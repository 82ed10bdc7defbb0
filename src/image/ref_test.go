package image

import (
	"strings"
	"testing"

	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/gitver"
)

func testInfo() *gitver.Info {
	return &gitver.Info{
		SHA:     "abc1234",
		FullSHA: "abc1234def",
		Branch:  "main",
		Version: "1.2.0",
		Major:   "1",
		Minor:   "2",
		Patch:   "0",
	}
}

func TestRefString(t *testing.T) {
	ref := Ref{
		Registry:   "europe-west1-docker.pkg.dev",
		Project:    "acme",
		Repository: "services",
		Name:       "orders",
		Tag:        "abc1234",
	}
	want := "europe-west1-docker.pkg.dev/acme/services/orders:abc1234"
	if got := ref.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := ref.Repo(); got != "acme/services/orders" {
		t.Errorf("Repo() = %q", got)
	}
}

func TestResolveSHATagFirst(t *testing.T) {
	cfg := config.ImageConfig{Name: "orders", Repository: "services"}

	refs, err := Resolve("acme", "europe-west1", cfg, testInfo())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %d, want 1", len(refs))
	}
	if refs[0].Tag != "abc1234" {
		t.Errorf("first tag = %q, want commit SHA", refs[0].Tag)
	}
	if refs[0].Registry != "europe-west1-docker.pkg.dev" {
		t.Errorf("registry = %q", refs[0].Registry)
	}
}

func TestResolveExtraTags(t *testing.T) {
	cfg := config.ImageConfig{
		Name:       "orders",
		Repository: "services",
		ExtraTags:  []string{"{branch}", "v{version}", "{sha}"}, // {sha} duplicates the base tag
	}

	refs, err := Resolve("acme", "europe-west1", cfg, testInfo())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var tags []string
	for _, r := range refs {
		tags = append(tags, r.Tag)
	}
	want := []string{"abc1234", "main", "v1.2.0"}
	if strings.Join(tags, ",") != strings.Join(want, ",") {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}

func TestResolveSkipsUnresolvedTemplates(t *testing.T) {
	info := testInfo()
	info.Prerelease = "" // {prerelease} resolves empty

	cfg := config.ImageConfig{
		Name:       "orders",
		Repository: "services",
		ExtraTags:  []string{"{prerelease}", "{bogus}"},
	}

	refs, err := Resolve("acme", "europe-west1", cfg, info)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("refs = %d, want only the SHA tag", len(refs))
	}
}

func TestResolveRequiresCommit(t *testing.T) {
	if _, err := Resolve("acme", "r", config.ImageConfig{}, nil); err == nil {
		t.Fatal("expected error without commit metadata")
	}
	if _, err := Resolve("acme", "r", config.ImageConfig{}, &gitver.Info{}); err == nil {
		t.Fatal("expected error for empty SHA")
	}
}

func TestBuildArgs(t *testing.T) {
	bx := NewBuildx(false)
	step := Step{
		Dockerfile: "docker/Dockerfile",
		Context:    "srv",
		Target:     "runtime",
		Platforms:  []string{"linux/amd64", "linux/arm64"},
		BuildArgs:  map[string]string{"JAR": "app.jar"},
		Refs: []Ref{{
			Registry: "r.dev", Project: "p", Repository: "s", Name: "app", Tag: "abc",
		}},
		Push: true,
	}

	args := strings.Join(bx.buildArgs(step), " ")

	for _, want := range []string{
		"buildx build",
		"--file docker/Dockerfile",
		"--target runtime",
		"--platform linux/amd64,linux/arm64",
		"--build-arg JAR=app.jar",
		"--tag r.dev/p/s/app:abc",
		"--push",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if !strings.HasSuffix(args, " srv") {
		t.Errorf("args %q must end with the build context", args)
	}
}

func TestBuildArgsLoadDefaultContext(t *testing.T) {
	bx := NewBuildx(false)
	args := strings.Join(bx.buildArgs(Step{Load: true}), " ")

	if !strings.Contains(args, "--load") {
		t.Errorf("args %q missing --load", args)
	}
	if !strings.HasSuffix(args, " .") {
		t.Errorf("args %q must default the context to .", args)
	}
}

func TestIsMultiPlatform(t *testing.T) {
	if IsMultiPlatform(Step{Platforms: []string{"linux/amd64"}}) {
		t.Error("single platform reported as multi")
	}
	if !IsMultiPlatform(Step{Platforms: []string{"linux/amd64", "linux/arm64"}}) {
		t.Error("two platforms not reported as multi")
	}
}
