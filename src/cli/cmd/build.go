package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/build"
	"github.com/gantryci/gantry/src/output"
)

var (
	bSkipTests bool
	bDryRun    bool
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build the application package",
	Long: `Build the application package with the configured tool (maven or gradle).

Restores the dependency cache when available; a cache miss degrades to a
cold build, never a failed one.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&bSkipTests, "skip-tests", false, "pass the build tool's test-skip flag")
	buildCmd.Flags().BoolVar(&bDryRun, "dry-run", false, "show the plan without executing")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	if len(args) > 0 {
		rootDir = args[0]
	}

	ctx := context.Background()
	w := os.Stdout
	color := output.UseColor()

	buildCfg := cfg.Build
	if bSkipTests {
		buildCfg.SkipTests = true
	}

	engine, err := build.Get(buildCfg.Tool)
	if err != nil {
		return err
	}

	det, err := build.DetectManifest(ctx, engine, buildCfg, rootDir)
	if err != nil {
		return fmt.Errorf("detection: %w", err)
	}

	plan, err := engine.Plan(ctx, buildCfg, det)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	if bDryRun {
		fmt.Printf("tool:     %s\n", plan.Tool)
		fmt.Printf("command:  %s %v\n", plan.Command, plan.Args)
		fmt.Printf("manifest: %s\n", plan.Manifest)
		fmt.Printf("artifact: %s\n", plan.Artifact)
		fmt.Printf("cache:    %s\n", cacheDirLabel(plan.CacheDir))
		return nil
	}

	start := time.Now()
	result, err := engine.Execute(ctx, plan)
	if err != nil {
		return err
	}

	sec := output.NewSection(w, "Build", time.Since(start), color)
	sec.Field("tool", plan.Tool)
	sec.Field("artifact", result.Artifact)
	sec.Field("cache", cacheLabel(result))
	sec.Close()

	return nil
}

func cacheDirLabel(dir string) string {
	if dir == "" {
		return "(disabled)"
	}
	return dir
}
