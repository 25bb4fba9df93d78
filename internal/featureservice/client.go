// Package featureservice queries ArcGIS feature-service layers over their
// REST API and loads the results into frames.
package featureservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Options configures the feature-service client.
type Options struct {
	Timeout   time.Duration
	RateLimit rate.Limit // requests per second (default 5)
	Burst     int
	UserAgent string
	Token     string // optional pre-acquired token
}

// Client talks to a single feature-service layer endpoint, e.g.
// https://host/arcgis/rest/services/Water/MapServer/0.
type Client struct {
	layerURL  string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	token     string
}

// NewClient creates a client for the given layer URL.
func NewClient(layerURL string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 5
	}
	if opts.Burst == 0 {
		opts.Burst = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoframe/1.0"
	}
	return &Client{
		layerURL:  strings.TrimRight(layerURL, "/"),
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(opts.RateLimit, opts.Burst),
		userAgent: opts.UserAgent,
		token:     opts.Token,
	}
}

// FieldInfo describes one layer field.
type FieldInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias"`
}

// Extent is the layer's bounding box with its spatial reference.
type Extent struct {
	XMin             float64 `json:"xmin"`
	YMin             float64 `json:"ymin"`
	XMax             float64 `json:"xmax"`
	YMax             float64 `json:"ymax"`
	SpatialReference struct {
		WKID       int `json:"wkid"`
		LatestWKID int `json:"latestWkid"`
	} `json:"spatialReference"`
}

// LayerInfo is the subset of layer metadata the loader needs.
type LayerInfo struct {
	Name                       string      `json:"name"`
	GeometryType               string      `json:"geometryType"`
	ObjectIDField              string      `json:"objectIdField"`
	Fields                     []FieldInfo `json:"fields"`
	MaxRecordCount             int         `json:"maxRecordCount"`
	Extent                     Extent      `json:"extent"`
	AdvancedQueryCapabilities  struct {
		SupportsPagination bool `json:"supportsPagination"`
	} `json:"advancedQueryCapabilities"`
}

// SRID returns the layer's spatial reference identifier, preferring the
// latest WKID.
func (info *LayerInfo) SRID() int {
	if info.Extent.SpatialReference.LatestWKID != 0 {
		return info.Extent.SpatialReference.LatestWKID
	}
	return info.Extent.SpatialReference.WKID
}

// serviceError is the error payload ArcGIS returns inside an HTTP 200.
type serviceError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Info fetches the layer metadata.
func (c *Client) Info(ctx context.Context) (*LayerInfo, error) {
	params := url.Values{"f": {"json"}}
	body, err := c.get(ctx, c.layerURL, params)
	if err != nil {
		return nil, err
	}

	var info LayerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, eris.Wrap(err, "featureservice: parse layer info")
	}
	if info.ObjectIDField == "" {
		info.ObjectIDField = "OBJECTID"
	}
	if info.MaxRecordCount == 0 {
		info.MaxRecordCount = 1000
	}
	return &info, nil
}

// Count returns the number of features matching the where clause.
func (c *Client) Count(ctx context.Context, where string) (int, error) {
	if where == "" {
		where = "1=1"
	}
	params := url.Values{
		"f":               {"json"},
		"where":           {where},
		"returnCountOnly": {"true"},
	}
	body, err := c.get(ctx, c.layerURL+"/query", params)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, eris.Wrap(err, "featureservice: parse count")
	}
	return resp.Count, nil
}

// GenerateToken acquires a token from a portal token endpoint and stores
// it on the client for subsequent requests.
func (c *Client) GenerateToken(ctx context.Context, tokenURL, username, password string) error {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"client":     {"referer"},
		"referer":    {c.layerURL},
		"f":          {"json"},
		"expiration": {"60"},
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "featureservice: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "featureservice: build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "featureservice: token request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "featureservice: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("featureservice: token endpoint returned status %d", resp.StatusCode)
	}
	if err := checkServiceError(body); err != nil {
		return err
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return eris.Wrap(err, "featureservice: parse token response")
	}
	if tokenResp.Token == "" {
		return eris.New("featureservice: token endpoint returned no token")
	}

	c.token = tokenResp.Token
	return nil
}

// get performs a rate-limited GET and surfaces both transport and
// in-payload service errors.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "featureservice: rate limit")
	}

	if c.token != "" {
		params.Set("token", c.token)
	}
	reqURL := endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "featureservice: build request for %s", endpoint)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "featureservice: request %s", endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("featureservice: %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "featureservice: read response")
	}
	if err := checkServiceError(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkServiceError decodes the {"error":{...}} payload ArcGIS hides in
// successful HTTP responses.
func checkServiceError(body []byte) error {
	var svcErr serviceError
	if err := json.Unmarshal(body, &svcErr); err != nil {
		return nil // not an object; let the real decode report it
	}
	if svcErr.Error != nil {
		return eris.Errorf("featureservice: service error %d: %s", svcErr.Error.Code, svcErr.Error.Message)
	}
	return nil
}
