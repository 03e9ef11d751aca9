package spotify

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitedTransport waits on a shared token bucket before every request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps base so that requests across every client
// sharing it stay under rps requests per second. A non-positive rps disables
// limiting.
func NewRateLimitedTransport(base http.RoundTripper, rps float64) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if rps <= 0 {
		return base
	}
	burst := max(1, int(rps))
	return &rateLimitedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
