package cache

import (
	"context"
	"testing"
	"time"

	"github.com/skybi/ticketdesk/internal/session"
	"github.com/skybi/ticketdesk/internal/storage/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository counts lookups reaching the wrapped repository
type countingRepository struct {
	session.Repository
	lookups int
}

func (repo *countingRepository) GetByRawID(ctx context.Context, rawID string) (*session.Session, error) {
	repo.lookups++
	return repo.Repository.GetByRawID(ctx, rawID)
}

func newRepository(t *testing.T) (*SessionRepository, *countingRepository) {
	t.Helper()
	driver := New(inmem.New(), time.Minute)
	require.NoError(t, driver.Initialize(context.Background()))
	t.Cleanup(driver.Close)

	counting := &countingRepository{Repository: driver.sessions.repo}
	driver.sessions.repo = counting
	return driver.sessions, counting
}

func TestCachedLookup(t *testing.T) {
	ctx := context.Background()
	repo, counting := newRepository(t)

	created, rawID, err := repo.Create(ctx, &session.Create{AccessToken: "token", Expires: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		found, err := repo.GetByRawID(ctx, rawID)
		require.NoError(t, err)
		assert.Equal(t, created, found)
	}
	assert.Zero(t, counting.lookups)

	require.NoError(t, repo.Terminate(ctx, rawID))
	found, err := repo.GetByRawID(ctx, rawID)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, 1, counting.lookups)
}

func TestCachedLookupMisses(t *testing.T) {
	ctx := context.Background()
	repo, counting := newRepository(t)

	found, err := repo.GetByRawID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, found)
	found, err = repo.GetByRawID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, 2, counting.lookups)
}

func TestCachedExpiry(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepository(t)

	_, rawID, err := repo.Create(ctx, &session.Create{AccessToken: "token", Expires: time.Now().Add(-time.Second).Unix()})
	require.NoError(t, err)

	found, err := repo.GetByRawID(ctx, rawID)
	require.NoError(t, err)
	assert.Nil(t, found)

	n, err := repo.TerminateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
