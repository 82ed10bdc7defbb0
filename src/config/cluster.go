package config

// ClusterConfig identifies the target GKE cluster and the service account
// credential used to reach it.
type ClusterConfig struct {
	Name string `yaml:"name" toml:"name"`
	Zone string `yaml:"zone" toml:"zone"`

	// KeyFile is the path to a service-account key JSON. Empty falls back
	// to GOOGLE_APPLICATION_CREDENTIALS, then ambient gcloud auth.
	KeyFile string `yaml:"key_file" toml:"key_file"`

	// Project overrides the top-level project for cluster operations.
	Project string `yaml:"project" toml:"project"`
}

// DefaultClusterConfig returns an empty cluster config; name and zone are
// required and enforced by Validate.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{}
}

// ClusterProject returns the project for cluster operations: the
// per-cluster override when set, the top-level project otherwise.
func (c *Config) ClusterProject() string {
	if c.Cluster.Project != "" {
		return c.Cluster.Project
	}
	return c.Project
}
