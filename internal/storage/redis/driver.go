package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skybi/ticketdesk/internal/secret"
	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/storage"
)

// keyPrefix namespaces the keys written by this driver
const keyPrefix = "ticketdesk:session:"

// Driver represents the Redis storage driver implementation.
// Sessions are stored as JSON values expiring on their own, so TerminateExpired has nothing to do.
type Driver struct {
	url      string
	client   *redis.Client
	sessions *SessionRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty Redis storage driver connecting to the given redis:// URL.
// Use Initialize to open the connection.
func New(url string) *Driver {
	return &Driver{url: url}
}

// Initialize opens the connection and verifies it is usable
func (driver *Driver) Initialize(ctx context.Context) error {
	options, err := redis.ParseURL(driver.url)
	if err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}
	return driver.initializeWith(ctx, redis.NewClient(options))
}

func (driver *Driver) initializeWith(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	driver.client = client
	driver.sessions = &SessionRepository{client: client, newID: secret.New}
	return nil
}

// Sessions provides the Redis session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// Close discards the repository implementation and closes the connection
func (driver *Driver) Close() {
	driver.sessions = nil
	if driver.client != nil {
		_ = driver.client.Close()
		driver.client = nil
	}
}

// SessionRepository implements the session.Repository interface using Redis
type SessionRepository struct {
	client *redis.Client
	newID  func() (string, string, error)
}

var _ session.Repository = (*SessionRepository)(nil)

func key(hash string) string {
	return keyPrefix + hash
}

// GetByRawID retrieves a session by its raw (prior hashing) ID
func (repo *SessionRepository) GetByRawID(ctx context.Context, rawID string) (*session.Session, error) {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil, nil
	}

	data, err := repo.client.Get(ctx, key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	obj := new(session.Session)
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", hash, err)
	}
	obj.ID = hash
	if obj.Expired(time.Now()) {
		return nil, nil
	}
	return obj, nil
}

// Create creates a new session
func (repo *SessionRepository) Create(ctx context.Context, create *session.Create) (*session.Session, string, error) {
	if create.AccessToken == "" {
		return nil, "", errors.New("a session requires an access token")
	}
	expires := time.Unix(create.Expires, 0)
	if !expires.After(time.Now()) {
		return nil, "", errors.New("a session has to expire in the future")
	}

	rawID, hash, err := repo.newID()
	if err != nil {
		return nil, "", err
	}
	obj := &session.Session{
		ID:          hash,
		AccessToken: create.AccessToken,
		Subject:     create.Subject,
		Expires:     create.Expires,
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, "", err
	}

	if err := repo.client.SetArgs(ctx, key(hash), string(data), redis.SetArgs{ExpireAt: expires}).Err(); err != nil {
		return nil, "", err
	}
	return obj, rawID, nil
}

// Terminate terminates a session by its raw ID
func (repo *SessionRepository) Terminate(ctx context.Context, rawID string) error {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil
	}
	return repo.client.Del(ctx, key(hash)).Err()
}

// TerminateExpired is a no-op as Redis expires sessions on its own
func (repo *SessionRepository) TerminateExpired(_ context.Context) (int, error) {
	return 0, nil
}
