// Package token persists the session token proving an authenticated identity to the backend.
package token
