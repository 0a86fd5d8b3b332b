package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/invoicefetch/internal/instrumentation"
)

// TokenProvider is an interface for providing OAuth tokens for Google APIs
// This abstraction allows different token sources (token file, fixed access token, ...)
type TokenProvider interface {
	// TokenSource returns a source of valid tokens, refreshing them as needed
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// FileTokenProvider provides tokens from a client secrets file and a cached token file
type FileTokenProvider struct {
	CredentialsFile string
	TokenFile       string
	Scopes          []string

	// Metrics records token refresh outcomes. May be nil.
	Metrics *instrumentation.Metrics
}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider(credentialsFile, tokenFile string) *FileTokenProvider {
	return &FileTokenProvider{
		CredentialsFile: credentialsFile,
		TokenFile:       tokenFile,
	}
}

// HasToken checks if the token file exists
func (p *FileTokenProvider) HasToken() bool {
	_, err := os.Stat(p.TokenFile)
	return err == nil
}

// TokenSource returns a token source backed by the cached token.
// Refreshed tokens are written back to the token file.
func (p *FileTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := LoadConfig(p.CredentialsFile, p.Scopes...)
	if err != nil {
		return nil, err
	}

	tok, err := ReadToken(p.TokenFile)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, fmt.Errorf("%w; run 'invoicefetch auth' first", err)
		}
		return nil, err
	}

	return &persistingTokenSource{
		ctx:     ctx,
		base:    conf.TokenSource(ctx, tok),
		path:    p.TokenFile,
		last:    tok,
		metrics: p.Metrics,
	}, nil
}

// persistingTokenSource saves every newly issued token to disk.
type persistingTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	path    string
	metrics *instrumentation.Metrics

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh Google OAuth token: %w", err)
	}

	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
		if err := SaveToken(s.path, tok); err != nil {
			// The refreshed token is still usable for this run
			slog.Warn("failed to persist refreshed token", "path", s.path, "error", err)
		}
		s.last = tok
	}

	return tok, nil
}

// StaticTokenProvider provides a fixed token that is never refreshed
type StaticTokenProvider struct {
	Token *oauth2.Token
}

// NewStaticTokenProvider creates a provider for a bearer access token
func NewStaticTokenProvider(accessToken string) *StaticTokenProvider {
	return &StaticTokenProvider{
		Token: &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"},
	}
}

// TokenSource returns a source that always yields the fixed token
func (p *StaticTokenProvider) TokenSource(_ context.Context) (oauth2.TokenSource, error) {
	if p.Token == nil || p.Token.AccessToken == "" {
		return nil, errors.New("static token provider has no access token")
	}
	return oauth2.StaticTokenSource(p.Token), nil
}
