package config

// ArchiveConfig holds optional artifact archival settings. When an endpoint
// and bucket are configured, the packaged build artifact is uploaded to an
// S3-compatible object store after a successful build. Archival failures
// never fail the run.
type ArchiveConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`

	// Credentials is an env var prefix resolved to access/secret keys
	// (e.g., "GANTRY_S3" → GANTRY_S3_ACCESS_KEY/GANTRY_S3_SECRET_KEY).
	Credentials string `yaml:"credentials" toml:"credentials"`

	Secure *bool `yaml:"secure" toml:"secure"`
}

// Active returns true when archival is configured.
func (a ArchiveConfig) Active() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// UseTLS returns true unless secure is explicitly disabled.
func (a ArchiveConfig) UseTLS() bool {
	return a.Secure == nil || *a.Secure
}

// DefaultArchiveConfig returns archival disabled.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Prefix: "artifacts",
	}
}
