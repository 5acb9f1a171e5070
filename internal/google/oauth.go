package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrNoToken is returned when no token has been stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

// Authenticator manages OAuth tokens on disk. It implements TokenProvider.
type Authenticator struct {
	config *oauth2.Config
	dir    string
	mu     sync.Mutex
}

// NewAuthenticator creates an Authenticator for the given OAuth client.
// An empty dir means DefaultTokenDir().
func NewAuthenticator(clientID, clientSecret, dir string) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for Google integrations")
	}
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  oobRedirectURL,
			Scopes:       DefaultOAuthScopes,
		},
		dir: dir,
	}, nil
}

// DefaultTokenDir returns the directory tokens are stored in by default.
func DefaultTokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "calreminder")
}

// AuthURL returns the URL the user visits to authorize account.
func (a *Authenticator) AuthURL(account string) string {
	return a.config.AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (a *Authenticator) Exchange(ctx context.Context, account, code string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return a.saveToken(account, tok)
}

// HasToken reports whether a token file exists for account.
func (a *Authenticator) HasToken(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(a.tokenPath(account))
	return err == nil
}

// TokenSource returns a refreshing token source for account. Refreshed
// tokens are persisted.
func (a *Authenticator) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := a.loadToken(account)
	if err != nil {
		return nil, err
	}
	base := a.config.TokenSource(ctx, tok)
	return &savingTokenSource{auth: a, account: account, base: base, last: tok.AccessToken}, nil
}

// HTTPClient returns an HTTP client authorized for account.
func (a *Authenticator) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	return NewHTTPClient(ctx, a, account)
}

// NewHTTPClient returns an HTTP client that authorizes requests with tokens
// from tp. It fails when tp has no token for account.
func NewHTTPClient(ctx context.Context, tp TokenProvider, account string) (*http.Client, error) {
	if !tp.HasToken(account) {
		return nil, fmt.Errorf("%s", AuthenticationErrorMessage(account))
	}
	ts, err := tp.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}

// AuthenticationErrorMessage explains how to authorize account.
func AuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token not found for account %q. "+
		"Run 'calreminder auth --account %s' to authorize, then 'calreminder auth --account %s --code <code>'.",
		account, account, account)
}

func (a *Authenticator) tokenPath(account string) string {
	return filepath.Join(a.dir, fmt.Sprintf("google-%s.token", account))
}

func (a *Authenticator) loadToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.tokenPath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
	}
	return &tok, nil
}

func (a *Authenticator) saveToken(account string, tok *oauth2.Token) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(a.tokenPath(account), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// savingTokenSource writes a token back to disk whenever it changes.
type savingTokenSource struct {
	auth    *Authenticator
	account string
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.auth.saveToken(s.account, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func validateAccountName(account string) error {
	if account == "" {
		return errors.New("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}
