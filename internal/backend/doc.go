// Package backend implements the client of the ticketing backend's HTTP API.
//
// Every operation reads the session token afresh from the token store the client is bound to, attaches it as a
// bearer token when present and normalizes non-success responses into *Error values whose Kind is one of the
// ErrX sentinels.
package backend
