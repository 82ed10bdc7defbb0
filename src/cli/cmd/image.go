package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/cloud"
	"github.com/gantryci/gantry/src/gitver"
	"github.com/gantryci/gantry/src/image"
	"github.com/gantryci/gantry/src/output"
)

var (
	imgLocal     bool
	imgPlatforms []string
	imgTarget    string
)

var imageCmd = &cobra.Command{
	Use:   "image [dir]",
	Short: "Build and push the container image",
	Long: `Build the container image via docker buildx, tagged with the commit SHA,
and push it to the configured Artifact Registry repository.`,
	RunE: runImage,
}

func init() {
	imageCmd.Flags().BoolVar(&imgLocal, "local", false, "build for current platform, load into daemon, no push")
	imageCmd.Flags().StringSliceVar(&imgPlatforms, "platform", nil, "override platforms (comma-separated)")
	imageCmd.Flags().StringVar(&imgTarget, "target", "", "override Dockerfile target stage")

	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
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

	imgCfg := cfg.Image
	if imgTarget != "" {
		imgCfg.Target = imgTarget
	}
	if len(imgPlatforms) > 0 {
		imgCfg.Platforms = imgPlatforms
	}

	refs, err := image.Resolve(cfg.Project, cfg.Region, imgCfg, info)
	if err != nil {
		return err
	}

	step := imageStep(imgCfg, refs, rootDir)
	bx := image.NewBuildx(verbose)

	if imgLocal {
		step.Load = true
		step.Push = false
	} else {
		gcloud := cloud.New(cfg.Project, verbose)
		if err := gcloud.ActivateServiceAccount(ctx, cfg.Cluster.KeyFile); err != nil {
			return err
		}
		if err := gcloud.ConfigureDocker(ctx, image.RegistryHost(cfg.Region)); err != nil {
			return err
		}
		if image.IsMultiPlatform(step) {
			step.Push = true
			step.Load = false
			if err := bx.EnsureBuilder(ctx); err != nil {
				return err
			}
		}
	}

	start := time.Now()
	if _, err := bx.Build(ctx, step); err != nil {
		return err
	}

	if !imgLocal && !step.Push {
		if _, err := bx.PushRefs(ctx, refs, imgCfg.Push); err != nil {
			return err
		}
	}

	sec := output.NewSection(w, "Image", time.Since(start), color)
	for _, ref := range refs {
		sec.Field("tag", ref.String())
	}
	if imgLocal {
		sec.Field("push", "skipped (--local)")
	}
	sec.Close()

	return nil
}
