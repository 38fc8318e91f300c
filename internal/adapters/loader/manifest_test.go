package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - file: vijnana_bhairava.txt
    source: Vijnana Bhairava Tantra
    description: meditation techniques
  - file: japa.md
`), 0o644))

	entries, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "vijnana_bhairava.txt", entries[0].File)
	assert.Equal(t, "Vijnana Bhairava Tantra", entries[0].SourceID)
	assert.Equal(t, "japa.md", entries[1].SourceID)
}

func TestLoadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noFile := filepath.Join(dir, "nofile.yaml")
	require.NoError(t, os.WriteFile(noFile, []byte("sources:\n  - source: orphan\n"), 0o644))
	_, err = LoadManifest(noFile)
	assert.ErrorContains(t, err, "has no file")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("sources: [\n"), 0o644))
	_, err = LoadManifest(broken)
	assert.Error(t, err)
}

func TestLoadManifest_BundledCorpus(t *testing.T) {
	const dir = "../../../data/scriptures"
	entries, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for _, e := range entries {
		assert.NotEmpty(t, e.SourceID)
		_, err := os.Stat(filepath.Join(dir, e.File))
		assert.NoError(t, err, e.File)
	}
}
