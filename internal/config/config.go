// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string    `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Basemap     string    `yaml:"basemap,omitempty" json:"basemap,omitempty"`
	Datasets    []Dataset `yaml:"datasets" json:"datasets"`
	ZoomLimit   int       `yaml:"zoom,omitempty" json:"zoom,omitempty"`
}

// Dataset describes one taxon whose occurrences are fetched and mapped.
type Dataset struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label,omitempty" json:"label,omitempty"`
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Basemap     string   `yaml:"basemap,omitempty" json:"basemap"`
	Color       string   `yaml:"color,omitempty" json:"color,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"-"`
	TaxonKey    int      `yaml:"taxon_key" json:"taxon_key"`
	Limit       int      `yaml:"limit,omitempty" json:"limit,omitempty"`
	ZoomLimit   int      `yaml:"zoom,omitempty" json:"zoom"`
	Density     bool     `yaml:"density,omitempty" json:"density"`
	NoDensity   bool     `yaml:"-" json:"no_density,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Datasets {
		d := &cfg.Datasets[i]
		if d.Name == "" {
			return nil, fmt.Errorf("dataset %d: name is required", i)
		}
		if d.TaxonKey <= 0 {
			return nil, fmt.Errorf("dataset %q: taxon_key must be a positive integer", d.Name)
		}
	}

	return &cfg, nil
}
