package google

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoToken is returned when the token file does not exist yet.
var ErrNoToken = errors.New("no Google OAuth token found")

// LoadConfig reads a client secrets file and returns the OAuth2 configuration for the given scopes.
// DefaultOAuthScopes is used when no scope is given.
func LoadConfig(credentialsFile string, scopes ...string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file %s: %w", credentialsFile, err)
	}
	return conf, nil
}

// ReadToken loads a cached token from a JSON file.
func ReadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoToken, path)
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes a token to a JSON file readable only by the current user.
// The token is written to a temporary file first and renamed into place.
func SaveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := json.NewEncoder(tmp).Encode(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save token file: %w", err)
	}
	return nil
}

// Authorize runs the installed-application flow against a loopback redirect.
//
// It listens on a random port of 127.0.0.1, writes the consent URL to prompt and
// waits until the browser is redirected back with an authorization code, which is
// then exchanged for a token. The flow is aborted when ctx is cancelled.
func Authorize(ctx context.Context, conf *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start loopback listener: %w", err)
	}

	state, err := randomState()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	// Work on a copy so the caller's RedirectURL is left untouched
	flowConf := *conf
	flowConf.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("error") != "":
				http.Error(w, "Authorization was denied. You can close this window.", http.StatusBadRequest)
				sendResult(results, result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
			case q.Get("state") != state:
				http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			case q.Get("code") == "":
				http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			default:
				_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
				sendResult(results, result{code: q.Get("code")})
			}
		}),
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendResult(results, result{err: fmt.Errorf("loopback server failed: %w", err)})
		}
	}()
	defer func() { _ = srv.Close() }()

	authURL := flowConf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if _, err := fmt.Fprintf(prompt, "Open the following link in your browser to authorize access:\n%s\n", authURL); err != nil {
		return nil, fmt.Errorf("failed to write authorization prompt: %w", err)
	}

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flowConf.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	slog.Debug("google authorization completed", "redirect_url", flowConf.RedirectURL)
	return tok, nil
}

func sendResult[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewHTTPClient returns an HTTP client that authenticates requests with tokens from ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors
func NewHTTPClient(ts oauth2.TokenSource) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ForceAttemptHTTP2 = false
	base.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   base,
		},
	}
}
