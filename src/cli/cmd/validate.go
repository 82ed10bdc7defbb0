package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gantryci/gantry/src/manifest"
	"github.com/gantryci/gantry/src/output"
)

var valSkipScan bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config and manifests without touching the cluster",
	Long: `Run the structural manifest checks (workload presence, service selector
and targetPort wiring, ingress backends), the secret scan, and the apply-order
resolution, without applying anything. Exits non-zero on critical findings.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&valSkipScan, "skip-scan", false, "skip the manifest secret scan")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := os.Stdout
	color := output.UseColor()

	docs, err := manifest.LoadFiles(cfg.Deploy.Manifests)
	if err != nil {
		return err
	}

	findings := manifest.Validate(docs)
	if !valSkipScan && cfg.Deploy.ScanActive() {
		scanFindings, sErr := manifest.ScanSecrets(docs)
		if sErr != nil {
			return sErr
		}
		findings = append(findings, scanFindings...)
	}

	ordered, orderErr := manifest.Order(docs)
	if orderErr != nil {
		findings = append(findings, manifest.Finding{
			Doc:      "(set)",
			Severity: "critical",
			Message:  orderErr.Error(),
		})
	}

	sec := output.NewSection(w, "Validate", 0, color)
	sec.Row("%-16s%d document(s) in %d file(s)", "manifests", len(docs), len(cfg.Deploy.Manifests))
	if orderErr == nil {
		for i, doc := range ordered {
			sec.Row("%-16s%d. %s", "order", i+1, doc.Display())
		}
	}
	if len(findings) == 0 {
		sec.Row("%s no findings", output.StatusIcon("success", color))
	}
	for _, f := range findings {
		sec.Row("%s %s: %s", output.StatusIcon(f.Severity, color), f.Doc, f.Message)
	}
	sec.Close()

	if manifest.HasCritical(findings) {
		return fmt.Errorf("validation failed: %d finding(s)", len(findings))
	}
	return nil
}
