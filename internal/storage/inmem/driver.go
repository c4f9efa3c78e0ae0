package inmem

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/skybi/ticketdesk/internal/secret"
	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/storage"
)

const tableSessions = "sessions"

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableSessions: {
			Name: tableSessions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb
type Driver struct {
	db       *memdb.MemDB
	sessions *SessionRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver
func New() *Driver {
	return &Driver{}
}

// Initialize creates the in-memory database
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.sessions = &SessionRepository{db: db}
	return nil
}

// Sessions provides the in-memory session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// Close discards the in-memory database
func (driver *Driver) Close() {
	driver.sessions = nil
	driver.db = nil
}

// SessionRepository implements the session.Repository interface using an in-memory database
type SessionRepository struct {
	db *memdb.MemDB
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawID retrieves a session by its raw (prior hashing) ID
func (repo *SessionRepository) GetByRawID(_ context.Context, rawID string) (*session.Session, error) {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil, nil
	}

	txn := repo.db.Txn(false)
	obj, err := txn.First(tableSessions, "id", hash)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	cpy := *obj.(*session.Session)
	if cpy.Expired(time.Now()) {
		return nil, nil
	}
	return &cpy, nil
}

// Create creates a new session
func (repo *SessionRepository) Create(_ context.Context, create *session.Create) (*session.Session, string, error) {
	if create.AccessToken == "" {
		return nil, "", errors.New("a session requires an access token")
	}
	rawID, hash, err := secret.New()
	if err != nil {
		return nil, "", err
	}

	obj := &session.Session{
		ID:          hash,
		AccessToken: create.AccessToken,
		Subject:     create.Subject,
		Expires:     create.Expires,
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableSessions, obj); err != nil {
		return nil, "", err
	}
	txn.Commit()

	cpy := *obj
	return &cpy, rawID, nil
}

// Terminate terminates a session by its raw ID
func (repo *SessionRepository) Terminate(_ context.Context, rawID string) error {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableSessions, "id", hash); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (repo *SessionRepository) TerminateExpired(_ context.Context) (int, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound(tableSessions, "expires", int64(0))
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var expired []*session.Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*session.Session)
		if !ses.Expired(now) {
			break
		}
		expired = append(expired, ses)
	}
	for _, ses := range expired {
		if err := txn.Delete(tableSessions, ses); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}
