package build

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gantryci/gantry/src/config"
)

func projectDir(t *testing.T, manifestName string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestName), []byte("<project/>"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

func TestRegistryHasBothEngines(t *testing.T) {
	want := []string{"gradle", "maven"}
	if got := All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
}

func TestGetUnknownEngine(t *testing.T) {
	if _, err := Get("ant"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestMavenDetect(t *testing.T) {
	dir := projectDir(t, "pom.xml")

	engine, err := Get("maven")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	det, err := engine.Detect(context.Background(), dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if det.Manifest != filepath.Join(dir, "pom.xml") {
		t.Errorf("manifest = %q", det.Manifest)
	}

	if _, err := engine.Detect(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error when pom.xml is absent")
	}
}

func TestMavenPlan(t *testing.T) {
	dir := projectDir(t, "pom.xml")
	engine, _ := Get("maven")
	det, err := engine.Detect(context.Background(), dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	cfg := config.BuildConfig{
		SkipTests: true,
		Args:      []string{"-Pprod"},
		Cache:     config.DepCacheConfig{Dir: filepath.Join(dir, "cache")},
	}

	plan, err := engine.Plan(context.Background(), cfg, det)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if plan.Command != "mvn" {
		t.Errorf("command = %q", plan.Command)
	}
	if plan.Artifact != "target/*.jar" {
		t.Errorf("artifact = %q, want default glob", plan.Artifact)
	}

	joined := strings.Join(plan.Args, " ")
	for _, want := range []string{"-B", "package", "-DskipTests", "-Dmaven.repo.local=", "-Pprod"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if plan.CacheDir == "" {
		t.Error("cache dir not resolved")
	}
}

func TestMavenPlanCacheDisabled(t *testing.T) {
	dir := projectDir(t, "pom.xml")
	engine, _ := Get("maven")
	det, _ := engine.Detect(context.Background(), dir)

	off := false
	plan, err := engine.Plan(context.Background(), config.BuildConfig{
		Cache: config.DepCacheConfig{Enabled: &off},
	}, det)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.CacheDir != "" {
		t.Errorf("cache dir = %q, want empty when disabled", plan.CacheDir)
	}
	if strings.Contains(strings.Join(plan.Args, " "), "maven.repo.local") {
		t.Error("disabled cache must not set maven.repo.local")
	}
}

func TestGradlePlan(t *testing.T) {
	dir := projectDir(t, "build.gradle")
	engine, _ := Get("gradle")
	det, err := engine.Detect(context.Background(), dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	plan, err := engine.Plan(context.Background(), config.BuildConfig{SkipTests: true}, det)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if plan.Command != "gradle" {
		t.Errorf("command = %q, want gradle without wrapper", plan.Command)
	}
	joined := strings.Join(plan.Args, " ")
	if !strings.Contains(joined, "build") || !strings.Contains(joined, "-x test") {
		t.Errorf("args = %q", joined)
	}
	if plan.Artifact != "build/libs/*.jar" {
		t.Errorf("artifact = %q", plan.Artifact)
	}

	var cacheEnv string
	for _, e := range plan.Env {
		if strings.HasPrefix(e, "GRADLE_USER_HOME=") {
			cacheEnv = e
		}
	}
	if cacheEnv == "" {
		t.Error("gradle plan must route the cache through GRADLE_USER_HOME")
	}
}

func TestGradlePrefersWrapper(t *testing.T) {
	dir := projectDir(t, "build.gradle.kts")
	if err := os.WriteFile(filepath.Join(dir, "gradlew"), []byte("#!/bin/sh"), 0o755); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}

	engine, _ := Get("gradle")
	det, _ := engine.Detect(context.Background(), dir)
	plan, err := engine.Plan(context.Background(), config.BuildConfig{}, det)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Command != "./gradlew" {
		t.Errorf("command = %q, want ./gradlew", plan.Command)
	}
}

func TestDetectManifestConfigured(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "service-pom.xml"), []byte("<project/>"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	engine, _ := Get("maven")
	det, err := DetectManifest(context.Background(), engine, config.BuildConfig{Manifest: "service-pom.xml"}, dir)
	if err != nil {
		t.Fatalf("DetectManifest: %v", err)
	}
	if det.Manifest != filepath.Join(dir, "service-pom.xml") {
		t.Errorf("manifest = %q, want the configured path", det.Manifest)
	}

	// The cache key must follow the configured manifest.
	plan, err := engine.Plan(context.Background(), config.BuildConfig{Manifest: "service-pom.xml"}, det)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Manifest != det.Manifest {
		t.Errorf("plan manifest = %q, want %q", plan.Manifest, det.Manifest)
	}
}

func TestDetectManifestConfiguredMissing(t *testing.T) {
	engine, _ := Get("maven")
	_, err := DetectManifest(context.Background(), engine, config.BuildConfig{Manifest: "nope.xml"}, t.TempDir())
	if err == nil {
		t.Fatal("a configured manifest that does not exist must error, not fall back")
	}
}

func TestDetectManifestFallsBackToEngine(t *testing.T) {
	dir := projectDir(t, "pom.xml")

	engine, _ := Get("maven")
	det, err := DetectManifest(context.Background(), engine, config.BuildConfig{}, dir)
	if err != nil {
		t.Fatalf("DetectManifest: %v", err)
	}
	if det.Manifest != filepath.Join(dir, "pom.xml") {
		t.Errorf("manifest = %q, want detected pom.xml", det.Manifest)
	}
}
