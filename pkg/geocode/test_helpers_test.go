package geocode

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func newTestGeocoder(baseURL string) *geocoder {
	return &geocoder{
		httpClient: &http.Client{Timeout: 2 * time.Second},
		baseURL:    baseURL,
		userAgent:  "test-agent",
		limiter:    newTestLimiter(),
	}
}
