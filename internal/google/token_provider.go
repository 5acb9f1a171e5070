package google

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth token sources for Google APIs.
type TokenProvider interface {
	// TokenSource returns a token source for account. It fails when no
	// token has been stored for the account.
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)

	// HasToken reports whether a token exists for account.
	HasToken(account string) bool
}
