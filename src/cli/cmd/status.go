package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/cloud"
	"github.com/gantryci/gantry/src/deploy"
	"github.com/gantryci/gantry/src/manifest"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cluster state of the configured workloads",
	Long: `Fetch cluster credentials and print kubectl get output for every
document in the configured manifest set.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	docs, err := manifest.LoadFiles(cfg.Deploy.Manifests)
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

	kubectl := deploy.NewKubectl(kubeconfig, cfg.Deploy.Namespace, verbose)
	for _, doc := range docs {
		out, err := kubectl.Get(ctx, doc.Kind, doc.Name)
		if err != nil {
			fmt.Printf("%s: %v\n", doc.Display(), err)
			continue
		}
		fmt.Print(out)
	}
	return nil
}
