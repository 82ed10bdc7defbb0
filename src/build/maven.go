package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gantryci/gantry/src/config"
)

func init() {
	Register("maven", func() Engine { return &mavenEngine{} })
}

type mavenEngine struct {
	runner *Runner
}

func (e *mavenEngine) Name() string { return "maven" }

func (e *mavenEngine) Detect(ctx context.Context, rootDir string) (*Detection, error) {
	manifest := filepath.Join(rootDir, "pom.xml")
	if _, err := os.Stat(manifest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("maven: no pom.xml in %s", rootDir)
		}
		return nil, err
	}
	return &Detection{Manifest: manifest}, nil
}

func (e *mavenEngine) Plan(ctx context.Context, cfg config.BuildConfig, det *Detection) (*Plan, error) {
	plan := &Plan{
		Tool:     e.Name(),
		Command:  "mvn",
		Dir:      filepath.Dir(det.Manifest),
		Manifest: det.Manifest,
		Artifact: cfg.Artifact,
	}
	if plan.Artifact == "" {
		plan.Artifact = "target/*.jar"
	}

	args := []string{"-B", "package"}
	if cfg.SkipTests {
		args = append(args, "-DskipTests")
	}

	// The dependency cache is a hash-keyed local repository. Restore is
	// best-effort: a miss just means a full download.
	if cfg.Cache.Active() {
		cache, err := ResolveCache(cfg.Cache.Dir, det.Manifest)
		if err == nil {
			plan.CacheDir = cache.Dir
			args = append(args, fmt.Sprintf("-Dmaven.repo.local=%s", cache.Dir))
		}
	}

	args = append(args, cfg.Args...)
	plan.Args = args
	return plan, nil
}

func (e *mavenEngine) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	if e.runner == nil {
		e.runner = NewRunner(false)
	}
	return e.runner.Run(ctx, plan)
}
