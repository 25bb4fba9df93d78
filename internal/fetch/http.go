// Package fetch downloads remote sources over HTTP and FTP and unpacks
// zipped shapefile archives.
package fetch

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  rate.Limit // per-host request rate (default 10/s)
	Burst      int
}

// HTTPFetcher downloads over net/http with retry, backoff, and per-host
// rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoframe/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 10
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.RateLimit, f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.String())

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}

		cloned := req.Clone(ctx)
		resp, err := f.client.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("fetch: http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetch: http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("fetch: retryable status",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetch: http %d from %s", resp.StatusCode, req.URL.String())
		}

		return resp, nil
	}

	return nil, eris.Wrapf(lastErr, "fetch: %d attempts exhausted for %s", f.opts.MaxRetries, req.URL.String())
}

// backoff sleeps for an exponentially increasing duration with jitter,
// returning early if the context is cancelled.
func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	base := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	select {
	case <-time.After(base + jitter):
	case <-ctx.Done():
	}
}

// Download fetches the URL and returns the response body. The caller must
// close the returned ReadCloser.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: build request for %s", rawURL)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to the given path. Returns
// bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create %s", path)
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, body)
	if err != nil {
		return n, eris.Wrapf(err, "fetch: write %s", path)
	}
	return n, nil
}
