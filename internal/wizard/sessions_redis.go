package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/commission-platform/internal/revision"
	"github.com/atelierhq/commission-platform/internal/store/redisstore"
)

// RedisSessions keeps wizard drafts in redis with a rolling TTL.
type RedisSessions struct {
	store *redisstore.Store
	ttl   time.Duration
}

func NewRedisSessions(store *redisstore.Store, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessions{store: store, ttl: ttl}
}

func sessionKey(actorID uint64) string {
	return fmt.Sprintf("wizard:%d", actorID)
}

func (r *RedisSessions) Put(ctx context.Context, s *Session) error {
	return r.store.SetJSON(ctx, sessionKey(s.ActorID), s, r.ttl)
}

func (r *RedisSessions) Get(ctx context.Context, actorID uint64) (*Session, error) {
	var s Session
	if err := r.store.GetJSON(ctx, sessionKey(actorID), &s); err != nil {
		if errors.Is(err, redisstore.ErrNotFound) {
			return nil, revision.ErrInvalidState
		}
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, actorID uint64) error {
	return r.store.Delete(ctx, sessionKey(actorID))
}
