package fetch

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// IsRemote reports whether the source string is an http(s) or ftp URL
// rather than a local path.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// Fetcher dispatches downloads to HTTP or FTP by URL scheme.
type Fetcher struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// NewFetcher builds a Fetcher with the given HTTP options; the FTP side
// shares the HTTP timeout.
func NewFetcher(httpOpts HTTPOptions) *Fetcher {
	return &Fetcher{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(httpOpts.Timeout),
	}
}

// Fetch downloads a remote source into destDir, keeping the URL's base
// name, and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}

	base := filepath.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return "", eris.Errorf("fetch: cannot derive file name from %s", rawURL)
	}
	destPath := filepath.Join(destDir, base)

	var n int64
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		n, err = f.HTTP.DownloadToFile(ctx, rawURL, destPath)
	case "ftp":
		n, err = f.FTP.DownloadToFile(ctx, rawURL, destPath)
	default:
		return "", eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("fetch: downloaded",
		zap.String("url", rawURL),
		zap.String("path", destPath),
		zap.Int64("bytes", n),
	)
	return destPath, nil
}
