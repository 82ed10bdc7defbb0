package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gantryci/gantry/src/config"
)

func init() {
	Register("gradle", func() Engine { return &gradleEngine{} })
}

type gradleEngine struct {
	runner *Runner
}

func (e *gradleEngine) Name() string { return "gradle" }

func (e *gradleEngine) Detect(ctx context.Context, rootDir string) (*Detection, error) {
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		manifest := filepath.Join(rootDir, name)
		if _, err := os.Stat(manifest); err == nil {
			return &Detection{Manifest: manifest}, nil
		}
	}
	return nil, fmt.Errorf("gradle: no build.gradle or build.gradle.kts in %s", rootDir)
}

func (e *gradleEngine) Plan(ctx context.Context, cfg config.BuildConfig, det *Detection) (*Plan, error) {
	dir := filepath.Dir(det.Manifest)

	command := "gradle"
	if wrapper := filepath.Join(dir, "gradlew"); fileExists(wrapper) {
		command = "./gradlew"
	}

	plan := &Plan{
		Tool:     e.Name(),
		Command:  command,
		Dir:      dir,
		Manifest: det.Manifest,
		Artifact: cfg.Artifact,
	}
	if plan.Artifact == "" {
		plan.Artifact = "build/libs/*.jar"
	}

	args := []string{"build", "--no-daemon"}
	if cfg.SkipTests {
		args = append(args, "-x", "test")
	}

	if cfg.Cache.Active() {
		cache, err := ResolveCache(cfg.Cache.Dir, det.Manifest)
		if err == nil {
			plan.CacheDir = cache.Dir
			plan.Env = append(plan.Env, fmt.Sprintf("GRADLE_USER_HOME=%s", cache.Dir))
		}
	}

	args = append(args, cfg.Args...)
	plan.Args = args
	return plan, nil
}

func (e *gradleEngine) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	if e.runner == nil {
		e.runner = NewRunner(false)
	}
	return e.runner.Run(ctx, plan)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
