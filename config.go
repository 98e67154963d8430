package graphtune

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .graphtune.yaml configuration file.
type Config struct {
	// Backend name for all playbooks (currently "cypher").
	Backend string `yaml:"backend"`

	// Connection settings for the backend.
	Connection ConnectionConfig `yaml:"connection"`

	// Playbook files to run when none are given on the command line.
	Playbooks []string `yaml:"playbooks,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".graphtune.yaml", ".graphtune.yml", "graphtune.yaml", "graphtune.yml"}

// LoadConfig finds and loads the nearest config file walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
