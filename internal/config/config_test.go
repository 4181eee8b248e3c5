package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
attribution: "GBIF.org"
zoom: 5
datasets:
  - name: bradypus
    label: "Bradypus variegatus"
    taxon_key: 2440021
    limit: 300
    color: "#1b9e77"
    aliases: [sloth]
    density: true
  - name: puma
    taxon_key: 2435099
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "GBIF.org", cfg.Attribution)
	assert.Equal(t, 5, cfg.ZoomLimit)
	require.Len(t, cfg.Datasets, 2)

	d := cfg.Datasets[0]
	assert.Equal(t, "bradypus", d.Name)
	assert.Equal(t, 2440021, d.TaxonKey)
	assert.Equal(t, 300, d.Limit)
	assert.Equal(t, []string{"sloth"}, d.Aliases)
	assert.True(t, d.Density)

	assert.False(t, cfg.Datasets[1].Density)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsUnnamedDataset(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - taxon_key: 2440021
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "name is required")
}

func TestLoadRejectsMissingTaxonKey(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - name: bradypus
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "taxon_key")
}
