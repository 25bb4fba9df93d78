package fetch

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")

	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"counties.shp": "shp",
		"counties.dbf": "dbf",
		"counties.prj": "prj",
	})

	dest := t.TempDir()
	paths, err := ExtractZip(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	data, err := os.ReadFile(filepath.Join(dest, "counties.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(data))
}

func TestExtractZip_SlipRejected(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../evil.txt": "nope",
	})

	_, err := ExtractZip(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestFindShapefile(t *testing.T) {
	path, err := FindShapefile([]string{"/tmp/a.dbf", "/tmp/a.shp", "/tmp/a.shx"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.shp", path)

	_, err = FindShapefile([]string{"/tmp/a.dbf"})
	assert.Error(t, err)

	_, err = FindShapefile([]string{"/tmp/a.shp", "/tmp/b.SHP"})
	assert.Error(t, err)
}
