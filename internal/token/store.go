package token

import "context"

// Name is the fixed key under which the session token is persisted
const Name = "access_token"

// Store defines the session token storage API.
// An empty token means that no user is authenticated; the last successful Set wins.
type Store interface {
	// Get retrieves the current token or an empty string if there is none
	Get(ctx context.Context) (string, error)

	// Set replaces the current token
	Set(ctx context.Context, token string) error

	// Clear removes the current token
	Clear(ctx context.Context) error
}
