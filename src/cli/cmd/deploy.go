package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/cloud"
	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/deploy"
	"github.com/gantryci/gantry/src/gitver"
	"github.com/gantryci/gantry/src/image"
	"github.com/gantryci/gantry/src/manifest"
	"github.com/gantryci/gantry/src/output"
)

var (
	depTag        string
	depSkipVerify bool
	depSkipScan   bool
	depForce      bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy [dir]",
	Short: "Apply manifests to the cluster and verify rollouts",
	Long: `Apply the configured manifests to the GKE cluster in dependency order
(workloads before the routing that targets them), pinned to the commit's
image tag, then wait for every workload rollout to complete.

The image tag defaults to the current commit SHA; --tag deploys a specific
already-pushed tag instead (rollback by re-deploying an old SHA).`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&depTag, "tag", "", "deploy a specific image tag instead of the current commit SHA")
	deployCmd.Flags().BoolVar(&depSkipVerify, "skip-verify", false, "apply without waiting for rollouts")
	deployCmd.Flags().BoolVar(&depSkipScan, "skip-scan", false, "skip the manifest secret scan")
	deployCmd.Flags().BoolVar(&depForce, "force", false, "ignore the configured branch gate")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
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

	info, err := gitver.Detect(rootDir)
	if err != nil {
		return err
	}

	if !depForce && !deployBranchAllowed(info.Branch) {
		return fmt.Errorf("branch %q is not in the configured deploy branches (use --force to override)", info.Branch)
	}

	refs, err := image.Resolve(cfg.Project, cfg.Region, cfg.Image, info)
	if err != nil {
		return err
	}
	ref := refs[0]
	if depTag != "" {
		ref.Tag = depTag
	}

	docs, err := manifest.LoadFiles(cfg.Deploy.Manifests)
	if err != nil {
		return err
	}

	findings := manifest.Validate(docs)
	if !depSkipScan && cfg.Deploy.ScanActive() {
		scanFindings, sErr := manifest.ScanSecrets(docs)
		if sErr != nil {
			return sErr
		}
		findings = append(findings, scanFindings...)
	}
	for _, f := range findings {
		fmt.Fprintf(w, "    %s %s: %s\n", output.StatusIcon(f.Severity, color), f.Doc, f.Message)
	}
	if manifest.HasCritical(findings) {
		return fmt.Errorf("manifest validation failed, nothing applied")
	}

	if _, err := manifest.RewriteImage(docs, cfg.Image.Name, ref.String()); err != nil {
		return err
	}

	ordered, err := manifest.Order(docs)
	if err != nil {
		return err
	}

	gcloud := cloud.New(cfg.ClusterProject(), verbose)
	if err := gcloud.ActivateServiceAccount(ctx, cfg.Cluster.KeyFile); err != nil {
		return err
	}
	kubeconfig := filepath.Join(os.TempDir(), fmt.Sprintf("gantry-kubeconfig-%s", uuid.NewString()))
	if err := gcloud.GetClusterCredentials(ctx, cfg.Cluster.Name, cfg.Cluster.Zone, kubeconfig); err != nil {
		return err
	}
	defer cloud.CleanupKubeconfig(kubeconfig)

	deployer := &deploy.Deployer{
		Kubectl: deploy.NewKubectl(kubeconfig, cfg.Deploy.Namespace, verbose),
	}
	if !depSkipVerify && cfg.Deploy.Verify.Active() {
		deployer.VerifyTimeout = cfg.Deploy.Verify.Timeout
	}

	start := time.Now()
	applied, applyErr := deployer.Apply(ctx, ordered)

	sec := output.NewSection(w, "Deploy", time.Since(start), color)
	sec.Field("image", ref.String())
	for _, a := range applied {
		sec.Row("%s %s", output.StatusIcon("success", color), a.Doc.Display())
	}
	if applyErr != nil {
		sec.Row("%s %s", output.StatusIcon("failed", color), applyErr)
	}
	sec.Close()
	if applyErr != nil {
		return applyErr
	}

	if deployer.VerifyTimeout > 0 {
		verifyStart := time.Now()
		if err := deployer.Verify(ctx, ordered); err != nil {
			return err
		}
		vSec := output.NewSection(w, "Verify", time.Since(verifyStart), color)
		for _, doc := range deploy.Workloads(ordered) {
			vSec.Row("%s %s rolled out", output.StatusIcon("success", color), doc.Display())
		}
		vSec.Close()
	}

	return nil
}

func deployBranchAllowed(branch string) bool {
	if branch == "" {
		return false // detached HEAD never deploys
	}
	return config.MatchPatterns(cfg.Deploy.Branches, branch)
}
