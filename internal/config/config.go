// Package config supplies tool-level defaults from an optional YAML file.
// CLI flags always override whatever is configured here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BardConfig is the top-level configuration loaded from
// ~/.config/bardcheck/config.yaml.
type BardConfig struct {
	Privacy  string         `yaml:"privacy"`   // strict or standard
	FailOn   string         `yaml:"fail_on"`   // critical, high, medium, low, none
	Format   string         `yaml:"format"`    // json, md, sarif, both
	OutDir   string         `yaml:"out_dir"`   // report + cache root
	OSVURL   string         `yaml:"osv_url"`   // advisory mirror base URL
	Advisory AdvisoryConfig `yaml:"advisory"`
}

// AdvisoryConfig controls advisory lookup behaviour.
type AdvisoryConfig struct {
	RefreshCache  bool `yaml:"refresh_cache"`
	FailOnUnknown bool `yaml:"fail_on_unknown"`
}

// Default returns the default configuration.
func Default() *BardConfig {
	return &BardConfig{
		Privacy: "strict",
		FailOn:  "high",
		Format:  "both",
		OutDir:  "./.bardcheck",
		OSVURL:  "https://api.osv.dev",
	}
}

// Load reads the config from path, or from the default location when path
// is empty. A missing file yields the defaults.
func Load(path string) (*BardConfig, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = FilePath("config.yaml")
		if err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to ~/.config/bardcheck/config.yaml.
func Save(cfg *BardConfig) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	path, err := FilePath("config.yaml")
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	header := []byte("# bardscan configuration\n\n")
	return os.WriteFile(path, append(header, data...), 0644)
}
