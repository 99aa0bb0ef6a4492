// internal/store/mutes.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	muteCacheTTL      = 5 * time.Minute
	muteCacheSentinel = "__none__"
)

// MuteStore answers "has this user muted this thread". Postgres is the
// source of truth; a per-user redis set keeps the comment notifier's hot
// path off the database. The sentinel member marks a primed-but-empty set,
// since a missing key is indistinguishable from an unprimed one.
type MuteStore struct {
	db    *sql.DB
	cache *redis.Client
}

func NewMuteStore(db *sql.DB, cache *redis.Client) *MuteStore {
	return &MuteStore{db: db, cache: cache}
}

func muteCacheKey(userID string) string {
	return "mutes:" + userID
}

// IsThreadMuted reports whether the user muted the thread. Cache errors
// fall through to postgres; a mute check must never fail open because
// redis is down.
func (s *MuteStore) IsThreadMuted(ctx context.Context, userID, threadID string) (bool, error) {
	if s.cache != nil {
		key := muteCacheKey(userID)
		exists, err := s.cache.Exists(ctx, key).Result()
		if err == nil && exists == 1 {
			muted, err := s.cache.SIsMember(ctx, key, threadID).Result()
			if err == nil {
				return muted, nil
			}
		}
	}

	muted, threads, err := s.lookupMutes(ctx, userID, threadID)
	if err != nil {
		return false, err
	}

	if s.cache != nil {
		s.prime(ctx, userID, threads)
	}
	return muted, nil
}

func (s *MuteStore) lookupMutes(ctx context.Context, userID, threadID string) (bool, []string, error) {
	const q = `SELECT thread_id FROM thread_mutes WHERE user_id = $1`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return false, nil, fmt.Errorf("query thread mutes for user %s: %w", userID, err)
	}
	defer rows.Close()

	var muted bool
	var threads []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return false, nil, fmt.Errorf("scan thread mute: %w", err)
		}
		threads = append(threads, id)
		if id == threadID {
			muted = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, nil, fmt.Errorf("iterate thread mutes: %w", err)
	}
	return muted, threads, nil
}

// prime is best-effort; a failed cache write only costs the next lookup.
func (s *MuteStore) prime(ctx context.Context, userID string, threads []string) {
	key := muteCacheKey(userID)
	members := make([]interface{}, 0, len(threads)+1)
	members = append(members, muteCacheSentinel)
	for _, t := range threads {
		members = append(members, t)
	}

	pipe := s.cache.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, muteCacheTTL)
	_, _ = pipe.Exec(ctx)
}
