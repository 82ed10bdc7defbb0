package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/artifact"
	"github.com/gantryci/gantry/src/build"
	"github.com/gantryci/gantry/src/cloud"
	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/deploy"
	"github.com/gantryci/gantry/src/gitver"
	"github.com/gantryci/gantry/src/image"
	"github.com/gantryci/gantry/src/manifest"
	"github.com/gantryci/gantry/src/output"
	"github.com/gantryci/gantry/src/pipeline"
	"github.com/gantryci/gantry/src/registry"
	"github.com/gantryci/gantry/src/security"
)

var (
	runSkipVerify bool
	runSkipTests  bool
	runSkipScan   bool
	runLocal      bool
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run the full pipeline: build, containerize, push, deploy",
	Long: `Run the full pipeline against the repository at dir (default: cwd).

Stages run strictly in order: source, build, archive, auth, image, scan,
push, cluster, deploy, verify, prune. The first fatal failure aborts the run;
already-applied manifests stay applied. Deploy stages are gated by the
configured branch patterns.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runSkipVerify, "skip-verify", false, "apply manifests without waiting for rollouts")
	runCmd.Flags().BoolVar(&runSkipTests, "skip-tests", false, "pass the build tool's test-skip flag")
	runCmd.Flags().BoolVar(&runSkipScan, "skip-scan", false, "skip the manifest secret scan")
	runCmd.Flags().BoolVar(&runLocal, "local", false, "build for the current platform, load into daemon, no push or deploy")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
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

	rc := &pipeline.RunContext{
		RunID:   pipeline.NewRunID(),
		RootDir: rootDir,
		Verbose: verbose,
		Config:  cfg,
	}

	gcloud := cloud.New(cfg.Project, verbose)

	runner := &pipeline.Runner{
		Out: w,
		Stages: []pipeline.Stage{
			sourceStage(w, color),
			buildStage(w, color),
			archiveStage(w, color),
			authStage(gcloud),
			imageStage(w, color),
			scanStage(w, color),
			pushStage(w, color, gcloud),
			clusterStage(),
			deployStage(w, color),
			verifyStage(w, color),
			pruneStage(w, color, gcloud),
		},
	}

	start := time.Now()
	results, runErr := runner.Run(ctx, rc)
	pipeline.RenderSummary(w, results, time.Since(start), color)
	if rc.KubeconfigPath != "" {
		_ = cloud.CleanupKubeconfig(rc.KubeconfigPath)
	}
	return runErr
}

func sourceStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "source",
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			info, err := gitver.Detect(rc.RootDir)
			if err != nil {
				return "", err
			}
			rc.Git = info

			output.ContextBlock(w, []output.KV{
				{Key: "run", Value: rc.RunID},
				{Key: "commit", Value: info.SHA},
				{Key: "branch", Value: branchLabel(info)},
				{Key: "version", Value: info.Version},
			})
			if info.Dirty {
				fmt.Fprintln(w, output.Dimmed("    worktree has uncommitted changes", color))
			}
			return fmt.Sprintf("%s on %s", info.SHA, branchLabel(info)), nil
		},
	}
}

func buildStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "build",
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			buildCfg := rc.Config.Build
			if runSkipTests {
				buildCfg.SkipTests = true
			}

			engine, err := build.Get(buildCfg.Tool)
			if err != nil {
				return "", err
			}

			det, err := build.DetectManifest(ctx, engine, buildCfg, rc.RootDir)
			if err != nil {
				return "", fmt.Errorf("detection: %w", err)
			}

			plan, err := engine.Plan(ctx, buildCfg, det)
			if err != nil {
				return "", fmt.Errorf("planning: %w", err)
			}

			start := time.Now()
			result, err := engine.Execute(ctx, plan)
			if err != nil {
				return "", err
			}
			rc.Build = result

			sec := output.NewSection(w, "Build", time.Since(start), color)
			sec.Field("tool", plan.Tool)
			sec.Field("artifact", result.Artifact)
			sec.Field("cache", cacheLabel(result))
			sec.Close()

			return fmt.Sprintf("%s, %s", plan.Tool, filepath.Base(result.Artifact)), nil
		},
	}
}

func archiveStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "archive",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if !rc.Config.Archive.Active() {
				return true, "not configured"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			archiver, err := artifact.NewArchiver(rc.Config.Archive)
			if err != nil {
				// Archival is best-effort: report, never fail the run.
				return fmt.Sprintf("skipped: %v", err), nil
			}
			key, err := archiver.Upload(ctx, rc.Build.Artifact, rc.Git.SHA, rc.RunID)
			if err != nil {
				return fmt.Sprintf("skipped: %v", err), nil
			}
			return key, nil
		},
	}
}

func authStage(gcloud *cloud.GCloud) pipeline.Stage {
	return pipeline.Stage{
		Name: "auth",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if runLocal {
				return true, "--local"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			key := cloud.ResolveKeyFile(rc.Config.Cluster.KeyFile)
			if err := gcloud.ActivateServiceAccount(ctx, key); err != nil {
				return "", err
			}
			host := image.RegistryHost(rc.Config.Region)
			if err := gcloud.ConfigureDocker(ctx, host); err != nil {
				return "", err
			}
			if key == "" {
				return "ambient credentials, " + host, nil
			}
			return "service account, " + host, nil
		},
	}
}

func imageStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "image",
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			refs, err := image.Resolve(rc.Config.Project, rc.Config.Region, rc.Config.Image, rc.Git)
			if err != nil {
				return "", err
			}
			rc.Refs = refs

			step := imageStep(rc.Config.Image, refs, rc.RootDir)
			bx := image.NewBuildx(verbose)

			if image.IsMultiPlatform(step) && !runLocal {
				// Multi-platform images can't be loaded into the daemon;
				// buildx pushes them directly.
				step.Push = true
				step.Load = false
				if err := bx.EnsureBuilder(ctx); err != nil {
					return "", err
				}
			}

			start := time.Now()
			result, err := bx.Build(ctx, step)
			if err != nil {
				return "", err
			}

			sec := output.NewSection(w, "Image", time.Since(start), color)
			for _, ref := range refs {
				sec.Field("tag", ref.String())
			}
			sec.Close()

			return fmt.Sprintf("%d tag(s), %s", len(result.Images), rc.SHARef().Tag), nil
		},
	}
}

func scanStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "scan",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if !rc.Config.Image.Scan.Enabled {
				return true, "disabled"
			}
			if image.IsMultiPlatform(imageStep(rc.Config.Image, rc.Refs, rc.RootDir)) {
				return true, "multi-platform image not in local daemon"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			start := time.Now()
			result, err := security.Scan(ctx, rc.Config.Image.Scan, rc.SHARef().String())
			if err != nil {
				return "", err
			}

			sec := output.NewSection(w, "Scan", time.Since(start), color)
			sec.Field("image", rc.SHARef().String())
			sec.Field("findings", security.Summary(result))
			for _, path := range result.Artifacts {
				sec.Field("report", path)
			}
			sec.Close()

			if err := security.Gate(result, rc.Config.Image.Scan.FailOn); err != nil {
				return "", err
			}
			return security.Summary(result), nil
		},
	}
}

func pushStage(w *os.File, color bool, gcloud *cloud.GCloud) pipeline.Stage {
	return pipeline.Stage{
		Name: "push",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if runLocal {
				return true, "--local"
			}
			if image.IsMultiPlatform(imageStep(rc.Config.Image, rc.Refs, rc.RootDir)) {
				return true, "pushed during build"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			refs := rc.Refs

			// SHA tags are immutable: if this commit's tag is already in
			// the registry (a re-run), leave it alone and push only the
			// moving tags.
			if token, tErr := gcloud.AccessToken(ctx); tErr == nil {
				sha := rc.SHARef()
				reg, rErr := registry.New(rc.Config.Image.Provider, sha.Registry, rc.Config.Image.Credentials, token)
				if rErr == nil {
					if exists, eErr := registry.TagExists(ctx, reg, sha.Repo(), sha.Tag); eErr == nil && exists {
						fmt.Fprintln(w, output.Dimmed(fmt.Sprintf("    tag %s already pushed, skipping", sha.Tag), color))
						refs = refs[1:]
					}
				}
			}

			if len(refs) == 0 {
				return "already pushed", nil
			}

			bx := image.NewBuildx(verbose)
			start := time.Now()
			result, err := bx.PushRefs(ctx, refs, rc.Config.Image.Push)
			if err != nil {
				return "", err
			}

			sec := output.NewSection(w, "Push", time.Since(start), color)
			for _, img := range result.Images {
				sec.Field("pushed", img)
			}
			sec.Close()

			return fmt.Sprintf("%d tag(s)", len(result.Images)), nil
		},
	}
}

func clusterStage() pipeline.Stage {
	return pipeline.Stage{
		Name: "cluster",
		Skip: skipDeploy,
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			kubeconfig := filepath.Join(os.TempDir(), fmt.Sprintf("gantry-kubeconfig-%s", rc.RunID))
			cluster := rc.Config.Cluster
			// Cluster ops honor the per-cluster project override.
			gcloud := cloud.New(rc.Config.ClusterProject(), verbose)
			if err := gcloud.GetClusterCredentials(ctx, cluster.Name, cluster.Zone, kubeconfig); err != nil {
				return "", err
			}
			rc.KubeconfigPath = kubeconfig
			return fmt.Sprintf("%s (%s)", cluster.Name, cluster.Zone), nil
		},
	}
}

func deployStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "deploy",
		Skip: skipDeploy,
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			docs, err := prepareManifests(rc, w, color)
			if err != nil {
				return "", err
			}
			rc.Docs = docs

			deployer := &deploy.Deployer{
				Kubectl: deploy.NewKubectl(rc.KubeconfigPath, rc.Config.Deploy.Namespace, verbose),
			}

			start := time.Now()
			applied, err := deployer.Apply(ctx, docs)

			sec := output.NewSection(w, "Deploy", time.Since(start), color)
			for _, a := range applied {
				sec.Row("%s %s", output.StatusIcon("success", color), a.Doc.Display())
			}
			if err != nil {
				sec.Row("%s %s", output.StatusIcon("failed", color), err)
			}
			sec.Close()

			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d document(s) applied", len(applied)), nil
		},
	}
}

func verifyStage(w *os.File, color bool) pipeline.Stage {
	return pipeline.Stage{
		Name: "verify",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if skip, reason := skipDeploy(rc); skip {
				return true, reason
			}
			if runSkipVerify {
				return true, "--skip-verify"
			}
			if !rc.Config.Deploy.Verify.Active() {
				return true, "disabled"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			deployer := &deploy.Deployer{
				Kubectl:       deploy.NewKubectl(rc.KubeconfigPath, rc.Config.Deploy.Namespace, verbose),
				VerifyTimeout: rc.Config.Deploy.Verify.Timeout,
			}
			if err := deployer.Verify(ctx, rc.Docs); err != nil {
				return "", err
			}
			workloads := deploy.Workloads(rc.Docs)
			return fmt.Sprintf("%d rollout(s) complete", len(workloads)), nil
		},
	}
}

func pruneStage(w *os.File, color bool, gcloud *cloud.GCloud) pipeline.Stage {
	return pipeline.Stage{
		Name: "prune",
		Skip: func(rc *pipeline.RunContext) (bool, string) {
			if runLocal {
				return true, "--local"
			}
			if !rc.Config.Image.Retention.Active() {
				return true, "no retention policy"
			}
			return false, ""
		},
		Run: func(ctx context.Context, rc *pipeline.RunContext) (string, error) {
			token, err := gcloud.AccessToken(ctx)
			if err != nil {
				// Prune is housekeeping: report, never fail a deployed run.
				return fmt.Sprintf("skipped: %v", err), nil
			}
			sha := rc.SHARef()
			reg, err := registry.New(rc.Config.Image.Provider, sha.Registry, rc.Config.Image.Credentials, token)
			if err != nil {
				return fmt.Sprintf("skipped: %v", err), nil
			}

			// Never prune release tags or the tag just pushed.
			patterns := []string{"!^v\\d", "!^" + sha.Tag + "$"}
			result, err := registry.ApplyRetention(ctx, reg, sha.Repo(), patterns, rc.Config.Image.Retention)
			if err != nil {
				return fmt.Sprintf("skipped: %v", err), nil
			}
			return fmt.Sprintf("%d kept, %d deleted", result.Kept, len(result.Deleted)), nil
		},
	}
}

// skipDeploy gates the cluster-facing stages on branch patterns and --local.
func skipDeploy(rc *pipeline.RunContext) (bool, string) {
	if runLocal {
		return true, "--local"
	}
	if rc.Git != nil && !config.MatchPatterns(rc.Config.Deploy.Branches, rc.Git.Branch) {
		return true, fmt.Sprintf("branch %q not in deploy branches", branchLabel(rc.Git))
	}
	return false, ""
}

// prepareManifests loads, validates, scans, image-rewrites, and orders the
// manifest set. Critical findings abort before any apply.
func prepareManifests(rc *pipeline.RunContext, w *os.File, color bool) ([]*manifest.Document, error) {
	docs, err := manifest.LoadFiles(rc.Config.Deploy.Manifests)
	if err != nil {
		return nil, err
	}

	findings := manifest.Validate(docs)
	if !runSkipScan && rc.Config.Deploy.ScanActive() {
		scanFindings, sErr := manifest.ScanSecrets(docs)
		if sErr != nil {
			return nil, sErr
		}
		findings = append(findings, scanFindings...)
	}
	for _, f := range findings {
		fmt.Fprintf(w, "    %s %s: %s\n", output.StatusIcon(f.Severity, color), f.Doc, f.Message)
	}
	if manifest.HasCritical(findings) {
		return nil, fmt.Errorf("manifest validation failed, nothing applied")
	}

	if _, err := manifest.RewriteImage(docs, rc.Config.Image.Name, rc.SHARef().String()); err != nil {
		return nil, err
	}

	return manifest.Order(docs)
}

func imageStep(cfg config.ImageConfig, refs []image.Ref, rootDir string) image.Step {
	step := image.Step{
		Dockerfile: cfg.Dockerfile,
		Context:    cfg.Context,
		Target:     cfg.Target,
		Platforms:  cfg.Platforms,
		BuildArgs:  cfg.BuildArgs,
		Refs:       refs,
		Load:       true,
	}
	if step.Context == "" {
		step.Context = rootDir
	}
	return step
}

func branchLabel(info *gitver.Info) string {
	if info.Branch == "" {
		return "(detached)"
	}
	return info.Branch
}

func cacheLabel(result *build.Result) string {
	switch {
	case result.CacheHit:
		return "hit"
	case result.CacheSkip:
		return "disabled"
	default:
		return "miss (cold)"
	}
}
