package session

import "context"

// Repository defines the session repository API
type Repository interface {
	// GetByRawID retrieves a session by its raw (prior hashing) ID.
	// Unknown, malformed and expired IDs yield (nil, nil).
	GetByRawID(ctx context.Context, rawID string) (*Session, error)

	// Create creates a new session and returns it together with its raw ID
	Create(ctx context.Context, create *Create) (*Session, string, error)

	// Terminate terminates a session by its raw ID; terminating an unknown session is a no-op
	Terminate(ctx context.Context, rawID string) error

	// TerminateExpired terminates all sessions that are expired and returns their amount
	TerminateExpired(ctx context.Context) (int, error)
}
