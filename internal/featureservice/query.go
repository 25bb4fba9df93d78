package featureservice

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basinlabs/geoframe/internal/frame"
)

// QueryOptions configures a paged layer query.
type QueryOptions struct {
	Where       string // default "1=1"
	OutFields   string // default "*"
	PageSize    int    // capped at the layer's maxRecordCount
	Concurrency int    // parallel page fetches (default 4)
}

// Query fetches all features matching the options and assembles them into
// a frame named after the layer. Layers that support pagination are read
// with concurrent resultOffset pages; others fall back to object-id
// windows.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*frame.Frame, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Where == "" {
		opts.Where = "1=1"
	}
	if opts.OutFields == "" {
		opts.OutFields = "*"
	}
	if opts.PageSize <= 0 || opts.PageSize > info.MaxRecordCount {
		opts.PageSize = info.MaxRecordCount
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	var features []Feature
	if info.AdvancedQueryCapabilities.SupportsPagination {
		features, err = c.queryPaged(ctx, info, opts)
	} else {
		features, err = c.queryByObjectIDs(ctx, info, opts)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("featureservice: query complete",
		zap.String("layer", info.Name),
		zap.Int("features", len(features)),
	)

	return ToFrame(info.Name, info, features)
}

// queryPaged fans out resultOffset pages with errgroup and reassembles
// them in offset order.
func (c *Client) queryPaged(ctx context.Context, info *LayerInfo, opts QueryOptions) ([]Feature, error) {
	total, err := c.Count(ctx, opts.Where)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	numPages := (total + opts.PageSize - 1) / opts.PageSize
	pages := make([][]Feature, numPages)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for page := range numPages {
		g.Go(func() error {
			resp, err := c.queryPage(gCtx, opts, page*opts.PageSize, opts.PageSize)
			if err != nil {
				return eris.Wrapf(err, "featureservice: page %d", page)
			}
			pages[page] = resp.Features
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	features := make([]Feature, 0, total)
	for _, page := range pages {
		features = append(features, page...)
	}
	return features, nil
}

// queryByObjectIDs handles layers without pagination support: fetch the
// full object-id list, then query fixed-size id windows sequentially.
func (c *Client) queryByObjectIDs(ctx context.Context, info *LayerInfo, opts QueryOptions) ([]Feature, error) {
	ids, err := c.objectIDs(ctx, opts.Where)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var features []Feature
	for start := 0; start < len(ids); start += opts.PageSize {
		end := min(start+opts.PageSize, len(ids))

		// Servers may truncate even an explicit id window at their transfer
		// limit; re-request the remainder until the window is exhausted.
		window := ids[start:end]
		for len(window) > 0 {
			params := c.baseQueryParams(opts)
			params.Del("where")
			params.Set("objectIds", joinIDs(window))

			body, err := c.get(ctx, c.layerURL+"/query", params)
			if err != nil {
				return nil, eris.Wrapf(err, "featureservice: object-id window at %d", start)
			}
			var resp queryResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, eris.Wrap(err, "featureservice: parse query response")
			}
			features = append(features, resp.Features...)

			if !resp.ExceededTransferLimit || len(resp.Features) == 0 {
				break
			}
			zap.L().Debug("featureservice: window truncated at transfer limit",
				zap.Int("returned", len(resp.Features)),
				zap.Int("remaining", len(window)-len(resp.Features)),
			)
			window = window[min(len(resp.Features), len(window)):]
		}
	}
	return features, nil
}

// queryPage fetches one resultOffset page.
func (c *Client) queryPage(ctx context.Context, opts QueryOptions, offset, count int) (*queryResponse, error) {
	params := c.baseQueryParams(opts)
	params.Set("resultOffset", strconv.Itoa(offset))
	params.Set("resultRecordCount", strconv.Itoa(count))

	body, err := c.get(ctx, c.layerURL+"/query", params)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "featureservice: parse query response")
	}
	return &resp, nil
}

// objectIDs fetches the matching object-id list.
func (c *Client) objectIDs(ctx context.Context, where string) ([]int64, error) {
	if where == "" {
		where = "1=1"
	}
	params := url.Values{
		"f":             {"json"},
		"where":         {where},
		"returnIdsOnly": {"true"},
	}
	body, err := c.get(ctx, c.layerURL+"/query", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ObjectIDs []int64 `json:"objectIds"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "featureservice: parse object ids")
	}
	return resp.ObjectIDs, nil
}

func (c *Client) baseQueryParams(opts QueryOptions) url.Values {
	return url.Values{
		"f":              {"json"},
		"where":          {opts.Where},
		"outFields":      {opts.OutFields},
		"returnGeometry": {"true"},
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
