package google

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator("client-id", "client-secret", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewAuthenticator_RequiresCredentials(t *testing.T) {
	if _, err := NewAuthenticator("", "secret", ""); err == nil {
		t.Error("expected error without client id")
	}
	if _, err := NewAuthenticator("id", "", ""); err == nil {
		t.Error("expected error without client secret")
	}
}

func TestTokenPath(t *testing.T) {
	a := newTestAuthenticator(t)
	tests := []struct {
		account string
		want    string
	}{
		{"default", "google-default.token"},
		{"work", "google-work.token"},
	}
	for _, tt := range tests {
		if got := filepath.Base(a.tokenPath(tt.account)); got != tt.want {
			t.Errorf("tokenPath(%q) = %v, want %v", tt.account, got, tt.want)
		}
	}
}

func TestAuthURL(t *testing.T) {
	url := newTestAuthenticator(t).AuthURL("work")
	for _, want := range []string{"client_id=client-id", "access_type=offline", "state=work", "calendar.events", "gmail.send"} {
		if !strings.Contains(url, want) {
			t.Errorf("AuthURL() = %q, missing %q", url, want)
		}
	}
}

func TestHasToken(t *testing.T) {
	a := newTestAuthenticator(t)

	if a.HasToken("invalid account") || a.HasToken("") {
		t.Error("HasToken() should return false for invalid account names")
	}
	if a.HasToken("default") {
		t.Error("HasToken() should return false before a token is saved")
	}

	if err := a.saveToken("default", &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	if !a.HasToken("default") {
		t.Error("HasToken() should return true after saving")
	}

	info, err := os.Stat(a.tokenPath("default"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestTokenSource(t *testing.T) {
	a := newTestAuthenticator(t)

	if _, err := a.TokenSource(context.Background(), "default"); err == nil {
		t.Fatal("expected error without token")
	}

	valid := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := a.saveToken("default", valid); err != nil {
		t.Fatal(err)
	}

	ts, err := a.TokenSource(context.Background(), "default")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "access" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}

	client, err := a.HTTPClient(context.Background(), "default")
	if err != nil || client == nil {
		t.Fatalf("HTTPClient() = %v, %v", client, err)
	}
}

func TestSavingTokenSource_PersistsRefresh(t *testing.T) {
	a := newTestAuthenticator(t)
	s := &savingTokenSource{
		auth:    a,
		account: "default",
		base:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "new", RefreshToken: "refresh"}),
		last:    "old",
	}

	if _, err := s.Token(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(a.tokenPath("default"))
	if err != nil {
		t.Fatal(err)
	}
	var saved oauth2.Token
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.AccessToken != "new" {
		t.Errorf("saved AccessToken = %q, want new", saved.AccessToken)
	}
}

func TestLoadToken_Invalid(t *testing.T) {
	a := newTestAuthenticator(t)
	if err := os.WriteFile(a.tokenPath("default"), []byte("access refresh"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := a.loadToken("default"); err == nil {
		t.Error("expected error for a non-JSON token file")
	}
}

func TestAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work"} {
		msg := AuthenticationErrorMessage(account)
		if !strings.Contains(msg, account) || !strings.Contains(msg, "OAuth") {
			t.Errorf("AuthenticationErrorMessage(%q) = %q", account, msg)
		}
	}
}

type staticProvider struct {
	tokens map[string]*oauth2.Token
}

func (p staticProvider) TokenSource(_ context.Context, account string) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(p.tokens[account]), nil
}

func (p staticProvider) HasToken(account string) bool {
	_, ok := p.tokens[account]
	return ok
}

func TestNewHTTPClient(t *testing.T) {
	tp := staticProvider{tokens: map[string]*oauth2.Token{"default": {AccessToken: "a"}}}

	if _, err := NewHTTPClient(context.Background(), tp, "default"); err != nil {
		t.Fatalf("NewHTTPClient(default) error = %v", err)
	}

	_, err := NewHTTPClient(context.Background(), tp, "work")
	if err == nil || !strings.Contains(err.Error(), `account "work"`) {
		t.Errorf("NewHTTPClient(work) error = %v, want missing token error", err)
	}
}
