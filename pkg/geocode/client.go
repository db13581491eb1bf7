// Package geocode resolves a postal address to coordinates via a Nominatim search endpoint.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultURL is the public Nominatim search endpoint.
const DefaultURL = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent identifies this client to the geocoding service.
const DefaultUserAgent = "AILeadQualifier"

// Client geocodes addresses.
type Client interface {
	// Geocode geocodes a single address. A response without a match is not
	// an error; it returns a Result with Matched=false.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithTimeout bounds each request. It applies to a copy of the HTTP client,
// so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    DefaultURL,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timeout > 0 {
		hc := *g.httpClient
		hc.Timeout = g.timeout
		g.httpClient = &hc
	}
	return g
}
