package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = ".gantry.yml"
	tomlConfigFile    = ".gantry.toml"
)

// Config is the top-level gantry configuration. It holds the fixed
// environment constants of the pipeline: cloud project, region, image
// identity, cluster coordinates, and manifest paths.
type Config struct {
	Version int    `yaml:"version" toml:"version"`
	Project string `yaml:"project" toml:"project"`
	Region  string `yaml:"region" toml:"region"`

	Build   BuildConfig   `yaml:"build" toml:"build"`
	Image   ImageConfig   `yaml:"image" toml:"image"`
	Cluster ClusterConfig `yaml:"cluster" toml:"cluster"`
	Deploy  DeployConfig  `yaml:"deploy" toml:"deploy"`
	Archive ArchiveConfig `yaml:"archive" toml:"archive"`
}

// Load reads configuration from a YAML or TOML file.
// If path is empty, it tries .gantry.yml then .gantry.toml, degrading to
// defaults when neither exists. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if _, tErr := os.Stat(tomlConfigFile); tErr == nil {
				path = tomlConfigFile
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Version: 1,
		Build:   DefaultBuildConfig(),
		Image:   DefaultImageConfig(),
		Cluster: DefaultClusterConfig(),
		Deploy:  DefaultDeployConfig(),
		Archive: DefaultArchiveConfig(),
	}
}
