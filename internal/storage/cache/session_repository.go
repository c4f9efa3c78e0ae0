package cache

import (
	"context"
	"time"

	"github.com/skybi/ticketdesk/internal/hashmap"
	"github.com/skybi/ticketdesk/internal/secret"
	"github.com/skybi/ticketdesk/internal/session"
)

// SessionRepository implements the session.Repository interface in order to implement caching.
// Entries are keyed by the session hash; absent sessions are not cached.
type SessionRepository struct {
	repo  session.Repository
	cache *hashmap.ExpiringMap[string, *session.Session]
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawID retrieves a session by its raw (prior hashing) ID
func (repo *SessionRepository) GetByRawID(ctx context.Context, rawID string) (*session.Session, error) {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil, nil
	}
	if cached, ok := repo.cache.Lookup(hash); ok {
		if cached.Expired(time.Now()) {
			repo.cache.Unset(hash)
			return nil, nil
		}
		cpy := *cached
		return &cpy, nil
	}

	obj, err := repo.repo.GetByRawID(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		cpy := *obj
		repo.cache.Set(hash, &cpy)
	}
	return obj, nil
}

// Create creates a new session
func (repo *SessionRepository) Create(ctx context.Context, create *session.Create) (*session.Session, string, error) {
	obj, rawID, err := repo.repo.Create(ctx, create)
	if err != nil {
		return nil, "", err
	}
	cpy := *obj
	repo.cache.Set(obj.ID, &cpy)
	return obj, rawID, nil
}

// Terminate terminates a session by its raw ID
func (repo *SessionRepository) Terminate(ctx context.Context, rawID string) error {
	if err := repo.repo.Terminate(ctx, rawID); err != nil {
		return err
	}
	if hash, err := secret.Hash(rawID); err == nil {
		repo.cache.Unset(hash)
	}
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (repo *SessionRepository) TerminateExpired(ctx context.Context) (int, error) {
	n, err := repo.repo.TerminateExpired(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	repo.cache.BootstrappedManipulation(func(underlying map[string]*session.Session) {
		for hash, obj := range underlying {
			if obj.Expired(now) {
				delete(underlying, hash)
			}
		}
	})
	return n, nil
}
