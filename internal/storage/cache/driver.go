package cache

import (
	"context"
	"time"

	"github.com/skybi/ticketdesk/internal/hashmap"
	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/storage"
)

// Driver represents a storage driver implementation that wraps another one in order to implement in-memory caching
type Driver struct {
	underlying storage.Driver
	ttl        time.Duration
	sessions   *SessionRepository
}

var _ storage.Driver = (*Driver)(nil)

// New returns a new caching storage driver keeping entries for the given TTL
func New(underlying storage.Driver, ttl time.Duration) *Driver {
	return &Driver{
		underlying: underlying,
		ttl:        ttl,
	}
}

// Initialize initializes the underlying driver and the caching repositories
func (driver *Driver) Initialize(ctx context.Context) error {
	if err := driver.underlying.Initialize(ctx); err != nil {
		return err
	}

	sessionCache := hashmap.NewExpiring[string, *session.Session](driver.ttl)
	sessionCache.ScheduleCleanupTask(driver.ttl)
	driver.sessions = &SessionRepository{
		repo:  driver.underlying.Sessions(),
		cache: sessionCache,
	}
	return nil
}

// Sessions provides the caching session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// Close closes the caching repositories and the underlying driver
func (driver *Driver) Close() {
	if driver.sessions != nil {
		driver.sessions.cache.StopCleanupTask()
		driver.sessions = nil
	}
	driver.underlying.Close()
}
