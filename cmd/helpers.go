package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/basinlabs/geoframe/internal/fetch"
	"github.com/basinlabs/geoframe/internal/frame"
	"github.com/basinlabs/geoframe/internal/source"
	"github.com/basinlabs/geoframe/internal/store"
)

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newFetcher builds the remote source fetcher from config.
func newFetcher() *fetch.Fetcher {
	return fetch.NewFetcher(fetch.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RateLimit:  rate.Limit(cfg.Fetch.RateLimit),
		Burst:      cfg.Fetch.Burst,
	})
}

// isSourceArg reports whether the argument names a readable source (a URL
// or an existing local file) rather than a stored dataset id.
func isSourceArg(arg string) bool {
	if fetch.IsRemote(arg) {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// readSourceArg fetches (if remote) and reads a source into a frame
// without persisting it, so files can be inspected before loading.
func readSourceArg(ctx context.Context, arg string) (*frame.Frame, error) {
	path, cleanup, err := resolveSource(ctx, arg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	opts := source.Options{SRID: cfg.Load.DefaultSRID}
	if cfg.Load.Encoding != "utf-8" {
		opts.Encoding = cfg.Load.Encoding
	}
	return source.Read(ctx, path, opts)
}

// resolveSource downloads remote sources into a temp directory and returns
// a local path plus a cleanup func. Local paths pass through untouched.
func resolveSource(ctx context.Context, src string) (string, func(), error) {
	if !fetch.IsRemote(src) {
		return src, func() {}, nil
	}

	dir, err := os.MkdirTemp(cfg.Fetch.TempDir, "geoframe-fetch-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path, err := newFetcher().Fetch(ctx, src, dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
