package config

// BuildConfig holds package-build configuration.
type BuildConfig struct {
	// Tool selects the build engine: maven or gradle.
	Tool string `yaml:"tool" toml:"tool"`

	// Manifest is the dependency manifest the cache key is derived from
	// (pom.xml for maven, build.gradle for gradle). Empty = engine default.
	Manifest string `yaml:"manifest" toml:"manifest"`

	// Args are extra arguments appended to the build invocation.
	Args []string `yaml:"args" toml:"args"`

	// Artifact is a glob matching the packaged output (e.g., target/*.jar).
	Artifact string `yaml:"artifact" toml:"artifact"`

	// Cache controls the dependency cache. Restore is best-effort: a miss
	// degrades to a full dependency download, never a failed run.
	Cache DepCacheConfig `yaml:"cache" toml:"cache"`

	// SkipTests passes the engine's test-skip flag.
	SkipTests bool `yaml:"skip_tests" toml:"skip_tests"`
}

// DepCacheConfig holds dependency cache settings.
type DepCacheConfig struct {
	Enabled *bool  `yaml:"enabled" toml:"enabled"`
	Dir     string `yaml:"dir" toml:"dir"`
}

// Active returns true unless the cache is explicitly disabled.
func (c DepCacheConfig) Active() bool {
	return c.Enabled == nil || *c.Enabled
}

// DefaultBuildConfig returns sensible defaults for maven projects.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Tool:     "maven",
		Artifact: "target/*.jar",
		Cache: DepCacheConfig{
			Dir: ".gantry/cache/deps",
		},
	}
}
