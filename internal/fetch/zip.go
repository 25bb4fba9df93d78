package fetch

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZip extracts all files from a ZIP archive to the destination
// directory. Returns the list of extracted file paths.
func ExtractZip(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: open archive %s", zipPath)
	}
	defer func() { _ = r.Close() }()

	var extracted []string
	for _, f := range r.File {
		path, err := extractZipEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// FindShapefile returns the single .shp path among extracted files.
// Shapefile archives carry sidecars (.dbf, .shx, .prj) that must land next
// to it, which ExtractZip guarantees.
func FindShapefile(paths []string) (string, error) {
	var shp []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".shp") {
			shp = append(shp, p)
		}
	}
	switch len(shp) {
	case 0:
		return "", eris.New("fetch: archive contains no .shp file")
	case 1:
		return shp[0], nil
	default:
		return "", eris.Errorf("fetch: archive contains %d .shp files", len(shp))
	}
}

// extractZipEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractZipEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetch: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "fetch: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "fetch: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetch: open entry")
	}
	defer func() { _ = rc.Close() }()

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: create %s", destPath)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(err, "fetch: write %s", destPath)
	}

	return destPath, nil
}
