// Package redfin provides a client for the Redfin "stingray" JSON endpoints
// used to look up a property by address.
package redfin

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Redfin host serving the stingray API.
const DefaultBaseURL = "https://www.redfin.com/stingray"

// jsonPrefix is prepended to every stingray response body.
const jsonPrefix = "{}&&"

// Client defines the Redfin stingray operations. Each returns the parsed
// response document; callers pick fields with gjson paths.
type Client interface {
	// Search runs the location autocomplete for a free-form address.
	Search(ctx context.Context, address string) (gjson.Result, error)
	// InitialInfo returns listing metadata for a property URL path.
	InitialInfo(ctx context.Context, path string) (gjson.Result, error)
	// BelowTheFold returns the detailed property facts for a property ID.
	BelowTheFold(ctx context.Context, propertyID string) (gjson.Result, error)
}

// Option configures the Redfin client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a new Redfin stingray client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   DefaultBaseURL,
		userAgent: "Mozilla/5.0",
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, address string) (gjson.Result, error) {
	return c.get(ctx, "/do/location-autocomplete", url.Values{
		"location": {address},
		"v":        {"2"},
	})
}

func (c *httpClient) InitialInfo(ctx context.Context, path string) (gjson.Result, error) {
	return c.get(ctx, "/api/home/details/initialInfo", url.Values{
		"path": {path},
	})
}

func (c *httpClient) BelowTheFold(ctx context.Context, propertyID string) (gjson.Result, error) {
	return c.get(ctx, "/api/home/details/belowTheFold", url.Values{
		"propertyId":  {propertyID},
		"accessLevel": {"1"},
	})
}

func (c *httpClient) get(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return gjson.Result{}, eris.Wrapf(err, "redfin: build request %s", endpoint)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, eris.Wrapf(err, "redfin: request %s", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, eris.Wrapf(err, "redfin: read body %s", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, eris.Errorf("redfin: %s returned status %d", endpoint, resp.StatusCode)
	}
	return Parse(body)
}

// Parse strips the stingray prefix and validates the remaining JSON document.
func Parse(body []byte) (gjson.Result, error) {
	doc := strings.TrimPrefix(strings.TrimSpace(string(body)), jsonPrefix)
	if !gjson.Valid(doc) {
		return gjson.Result{}, eris.New("redfin: invalid JSON response")
	}
	return gjson.Parse(doc), nil
}
