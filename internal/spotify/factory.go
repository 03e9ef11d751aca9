package spotify

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-replay/internal/auth"
	"github.com/justestif/go-spotify-replay/internal/models"
	"github.com/justestif/go-spotify-replay/internal/sync"
)

// Factory builds per-user clients that share one transport.
type Factory struct {
	transport http.RoundTripper
	timeout   time.Duration
	opts      []Option
}

// NewFactory creates a Factory. Every client it builds sends requests
// through transport and gives up on a single request after timeout.
func NewFactory(transport http.RoundTripper, timeout time.Duration, opts ...Option) *Factory {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Factory{transport: transport, timeout: timeout, opts: opts}
}

// ForToken returns a client that authenticates with token.
// The token is used as-is; refreshing is the caller's job.
func (f *Factory) ForToken(token *oauth2.Token) *Client {
	httpClient := &http.Client{
		Timeout: f.timeout,
		Transport: &oauth2.Transport{
			Base:   f.transport,
			Source: oauth2.StaticTokenSource(token),
		},
	}
	return New(httpClient, f.opts...)
}

// NewClient implements sync.ClientFactory.
func (f *Factory) NewClient(ctx context.Context, cred models.Credential) (sync.MusicClient, error) {
	return f.ForToken(auth.TokenFromCredential(cred)), nil
}
