// internal/store/mutes_test.go
package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMuteFixture(t *testing.T) (*MuteStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	return NewMuteStore(db, cache), mock, mr
}

func expectMuteQuery(mock sqlmock.Sqlmock, threads ...string) {
	rows := sqlmock.NewRows([]string{"thread_id"})
	for _, th := range threads {
		rows.AddRow(th)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id FROM thread_mutes WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(rows)
}

func TestIsThreadMuted_ColdCacheFallsThroughToPostgres(t *testing.T) {
	store, mock, _ := newMuteFixture(t)
	expectMuteQuery(mock, "thread-1", "thread-2")

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")

	require.NoError(t, err)
	assert.True(t, muted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsThreadMuted_SecondLookupServedFromCache(t *testing.T) {
	store, mock, _ := newMuteFixture(t)
	// Exactly one db round trip expected; the second call must be a cache hit.
	expectMuteQuery(mock, "thread-1")

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = store.IsThreadMuted(context.Background(), "user-1", "thread-9")
	require.NoError(t, err)
	assert.False(t, muted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsThreadMuted_EmptyMuteListIsPrimedToo(t *testing.T) {
	store, mock, _ := newMuteFixture(t)
	// The sentinel member distinguishes "primed, nothing muted" from an
	// unprimed key, so the db is only asked once.
	expectMuteQuery(mock)

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)
	assert.False(t, muted)

	muted, err = store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)
	assert.False(t, muted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsThreadMuted_CacheExpiryGoesBackToPostgres(t *testing.T) {
	store, mock, mr := newMuteFixture(t)
	expectMuteQuery(mock, "thread-1")
	expectMuteQuery(mock, "thread-1")

	_, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)

	mr.FastForward(muteCacheTTL * 2)

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")
	require.NoError(t, err)
	assert.True(t, muted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsThreadMuted_RedisDownDoesNotFailOpen(t *testing.T) {
	store, mock, mr := newMuteFixture(t)
	mr.Close()
	expectMuteQuery(mock, "thread-1")

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")

	require.NoError(t, err)
	assert.True(t, muted, "a dead cache must fall through to the source of truth")
}

func TestIsThreadMuted_NoCacheConfigured(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewMuteStore(db, nil)
	expectMuteQuery(mock, "thread-2")

	muted, err := store.IsThreadMuted(context.Background(), "user-1", "thread-1")

	require.NoError(t, err)
	assert.False(t, muted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
