package config

// ScanConfig holds the pre-push image vulnerability scan settings.
// The scan runs between image build and push; a gated severity blocks the
// push so a vulnerable image never reaches the registry.
type ScanConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// FailOn is the severity that blocks the push: critical, high, none.
	FailOn string `yaml:"fail_on" toml:"fail_on"`

	// SBOM generates SPDX and CycloneDX SBOMs alongside the scan report.
	SBOM bool `yaml:"sbom" toml:"sbom"`

	// OutputDir receives the scan artifacts (JSON report, SBOMs).
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
}

// DefaultScanConfig returns scanning disabled, gating on critical when on.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		FailOn:    "critical",
		OutputDir: ".gantry/scan",
	}
}
