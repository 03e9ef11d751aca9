package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const callbackTimeout = 2 * time.Minute

// ErrAuthTimeout is returned when the OAuth callback is not received in time.
var ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

// Login runs the authorization code flow from a terminal. It serves the
// redirect URL's path on the redirect URL's host, prints the consent URL to
// out, and waits for Spotify to redirect back.
func (a *Authenticator) Login(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.oauth.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}

	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", redirect.Host, err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintln(out, "\nTo authenticate, open this URL in your browser:")
	fmt.Fprintln(out, a.AuthURL(state))
	fmt.Fprintln(out, "\nWaiting for authentication...")

	select {
	case token := <-tokenCh:
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(callbackTimeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handleCallback processes the OAuth callback from Spotify.
func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	token, err := a.Exchange(r.Context(), expectedState, r)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrStateMismatch) {
			status = http.StatusBadRequest
		}
		http.Error(w, "Authentication failed", status)
		select {
		case errCh <- err:
		default:
		}
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body>
<h1>Authentication Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	select {
	case tokenCh <- token:
	default:
	}
}
