package fetch

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPFetcher downloads files from anonymous FTP servers, the distribution
// channel some government data portals still use for bulk geodata.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates an FTPFetcher. A zero timeout defaults to 30s.
func NewFTPFetcher(timeout time.Duration) *FTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: timeout}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "fetch: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetch: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("fetch: empty path in ftp url")
	}

	return host, path, nil
}

// connect dials the server and performs the anonymous login.
func (f *FTPFetcher) connect(ctx context.Context, host string) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: ftp dial")
	}
	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetch: ftp login")
	}
	return conn, nil
}

// ftpFile streams one remote file. Closing it releases both the data
// transfer and the control connection.
type ftpFile struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpFile) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpFile) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetch: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "fetch: quit ftp connection")
	}
	return nil
}

// Download retrieves the file behind an FTP URL. The caller must close the
// returned ReadCloser to release the connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetch: ftp connecting", zap.String("host", host), zap.String("path", path))

	conn, err := f.connect(ctx, host)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetch: ftp retrieve")
	}

	return &ftpFile{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the FTP URL to a local file. Returns bytes
// written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create %s", path)
	}
	defer func() { _ = file.Close() }()

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrapf(err, "fetch: write %s", path)
	}
	return n, nil
}
