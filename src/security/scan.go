// Package security runs the pre-push image vulnerability scan. It
// orchestrates external tools (Trivy for vulnerabilities, Syft for SBOMs)
// and gates the push on the configured severity, so a vulnerable image
// never reaches the registry.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gantryci/gantry/src/config"
)

// Vulnerability is a single parsed vulnerability from the scan.
type Vulnerability struct {
	ID        string // CVE ID
	Severity  string // CRITICAL, HIGH, MEDIUM, LOW
	Package   string
	Installed string
	FixedIn   string
	Title     string
}

// Result holds the outcome of a scan.
type Result struct {
	Critical int
	High     int
	Medium   int
	Low      int

	Vulnerabilities []Vulnerability
	Artifacts       []string // generated report/SBOM paths
}

// Total returns the vulnerability count across all severities.
func (r *Result) Total() int {
	return r.Critical + r.High + r.Medium + r.Low
}

// Scan runs a Trivy scan against an image reference and optionally
// generates SBOMs. The image must be loaded in the local daemon.
func Scan(ctx context.Context, cfg config.ScanConfig, imageRef string) (*Result, error) {
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("scan output dir: %w", err)
	}

	jsonPath := filepath.Join(outDir, "scan.json")
	if err := runTrivy(ctx, imageRef, jsonPath); err != nil {
		return nil, fmt.Errorf("trivy scan: %w", err)
	}

	result := &Result{Artifacts: []string{jsonPath}}
	if err := parseReport(jsonPath, result); err != nil {
		return nil, fmt.Errorf("parsing scan report: %w", err)
	}

	if cfg.SBOM {
		for format, file := range map[string]string{
			"spdx-json":      "sbom.spdx.json",
			"cyclonedx-json": "sbom.cyclonedx.json",
		} {
			path := filepath.Join(outDir, file)
			if err := runSyft(ctx, imageRef, format, path); err != nil {
				return nil, fmt.Errorf("syft %s: %w", format, err)
			}
			result.Artifacts = append(result.Artifacts, path)
		}
	}

	return result, nil
}

// Gate returns an error when the result crosses the fail_on severity.
func Gate(result *Result, failOn string) error {
	switch strings.ToLower(failOn) {
	case "", "critical":
		if result.Critical > 0 {
			return fmt.Errorf("%d critical vulnerabilities, push blocked", result.Critical)
		}
	case "high":
		if result.Critical > 0 || result.High > 0 {
			return fmt.Errorf("%d critical and %d high vulnerabilities, push blocked", result.Critical, result.High)
		}
	case "none":
	default:
		return fmt.Errorf("unknown scan fail_on severity %q (valid: critical, high, none)", failOn)
	}
	return nil
}

// Summary returns a one-line count summary.
func Summary(result *Result) string {
	if result.Total() == 0 {
		return "no vulnerabilities"
	}
	return fmt.Sprintf("%d critical, %d high, %d medium, %d low",
		result.Critical, result.High, result.Medium, result.Low)
}

func runTrivy(ctx context.Context, imageRef, output string) error {
	cmd := exec.CommandContext(ctx, "trivy", "image", "--format", "json", "--output", output, imageRef)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func runSyft(ctx context.Context, imageRef, format, output string) error {
	outFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer outFile.Close()

	cmd := exec.CommandContext(ctx, "syft", imageRef, "-o", format)
	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// parseReport extracts counts and details from the Trivy JSON report.
func parseReport(jsonPath string, result *Result) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return err
	}

	var report struct {
		Results []struct {
			Vulnerabilities []struct {
				VulnerabilityID  string `json:"VulnerabilityID"`
				Severity         string `json:"Severity"`
				PkgName          string `json:"PkgName"`
				InstalledVersion string `json:"InstalledVersion"`
				FixedVersion     string `json:"FixedVersion"`
				Title            string `json:"Title"`
			} `json:"Vulnerabilities"`
		} `json:"Results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return err
	}

	for _, r := range report.Results {
		for _, v := range r.Vulnerabilities {
			sev := strings.ToUpper(v.Severity)
			switch sev {
			case "CRITICAL":
				result.Critical++
			case "HIGH":
				result.High++
			case "MEDIUM":
				result.Medium++
			case "LOW":
				result.Low++
			}
			result.Vulnerabilities = append(result.Vulnerabilities, Vulnerability{
				ID:        v.VulnerabilityID,
				Severity:  sev,
				Package:   v.PkgName,
				Installed: v.InstalledVersion,
				FixedIn:   v.FixedVersion,
				Title:     v.Title,
			})
		}
	}
	return nil
}
