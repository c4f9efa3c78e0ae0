package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/ticketdesk/internal/secret"
	"github.com/skybi/ticketdesk/internal/session"
)

// SessionRepository implements the session.Repository interface using PostgreSQL
type SessionRepository struct {
	db *pgxpool.Pool
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawID retrieves a session by its raw (prior hashing) ID
func (repo *SessionRepository) GetByRawID(ctx context.Context, rawID string) (*session.Session, error) {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil, nil
	}

	row := repo.db.QueryRow(ctx, "SELECT * FROM sessions WHERE session_id = $1 AND expires > $2", hash, time.Now().Unix())
	obj, err := repo.rowToSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new session
func (repo *SessionRepository) Create(ctx context.Context, create *session.Create) (*session.Session, string, error) {
	if create.AccessToken == "" {
		return nil, "", errors.New("a session requires an access token")
	}
	rawID, hash, err := secret.New()
	if err != nil {
		return nil, "", err
	}

	query := squirrel.Insert("sessions").
		Columns("session_id", "access_token", "subject", "expires").
		Values(hash, create.AccessToken, create.Subject, create.Expires)
	sql, values, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, "", err
	}
	if _, err := repo.db.Exec(ctx, sql, values...); err != nil {
		return nil, "", err
	}

	return &session.Session{
		ID:          hash,
		AccessToken: create.AccessToken,
		Subject:     create.Subject,
		Expires:     create.Expires,
	}, rawID, nil
}

// Terminate terminates a session by its raw ID
func (repo *SessionRepository) Terminate(ctx context.Context, rawID string) error {
	hash, err := secret.Hash(rawID)
	if err != nil {
		return nil
	}
	_, err = repo.db.Exec(ctx, "DELETE FROM sessions WHERE session_id = $1", hash)
	return err
}

// TerminateExpired terminates all sessions that are expired
func (repo *SessionRepository) TerminateExpired(ctx context.Context) (int, error) {
	sql, values, err := squirrel.Delete("sessions").
		Where(squirrel.LtOrEq{"expires": time.Now().Unix()}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := repo.db.Exec(ctx, sql, values...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (repo *SessionRepository) rowToSession(row pgx.Row) (*session.Session, error) {
	obj := new(session.Session)
	if err := row.Scan(&obj.ID, &obj.AccessToken, &obj.Subject, &obj.Expires); err != nil {
		return nil, err
	}
	return obj, nil
}
