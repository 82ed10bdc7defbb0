package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/cloud"
	"github.com/gantryci/gantry/src/image"
	"github.com/gantryci/gantry/src/output"
	"github.com/gantryci/gantry/src/registry"
)

var prunePatterns []string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune old image tags per the retention policy",
	Long: `Apply the configured retention policy to the image repository.

Policies are additive restic-style rules (keep_last, keep_daily, ...): a tag
survives if ANY rule wants it. Release tags (v*) are excluded by default;
--pattern overrides the candidate filter.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().StringSliceVar(&prunePatterns, "pattern", nil, "tag patterns to consider (regex, ! negates)")

	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	w := os.Stdout
	color := output.UseColor()

	if !cfg.Image.Retention.Active() {
		return fmt.Errorf("no retention policy configured under image.retention")
	}

	gcloud := cloud.New(cfg.Project, verbose)
	if err := gcloud.ActivateServiceAccount(ctx, cfg.Cluster.KeyFile); err != nil {
		return err
	}
	token, err := gcloud.AccessToken(ctx)
	if err != nil {
		return err
	}

	host := image.RegistryHost(cfg.Region)
	reg, err := registry.New(cfg.Image.Provider, host, cfg.Image.Credentials, token)
	if err != nil {
		return err
	}

	repo := fmt.Sprintf("%s/%s/%s", cfg.Project, cfg.Image.Repository, cfg.Image.Name)
	patterns := prunePatterns
	if len(patterns) == 0 {
		patterns = []string{"!^v\\d"} // never touch release tags by default
	}

	result, err := registry.ApplyRetention(ctx, reg, repo, patterns, cfg.Image.Retention)
	if err != nil {
		return err
	}

	sec := output.NewSection(w, "Prune", 0, color)
	sec.Field("repository", repo)
	sec.Row("%-16s%d matched, %d kept", "tags", result.Matched, result.Kept)
	for _, tag := range result.Deleted {
		sec.Field("deleted", tag)
	}
	for _, dErr := range result.Errors {
		sec.Row("%s %s", output.StatusIcon("failed", color), dErr)
	}
	sec.Close()

	if len(result.Errors) > 0 {
		return fmt.Errorf("prune finished with %d error(s)", len(result.Errors))
	}
	return nil
}
