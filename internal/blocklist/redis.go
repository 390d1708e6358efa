package blocklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
)

const metaSuffix = ":meta"

// RedisStore shares one block-list between several sweeper instances.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore does not check connectivity; callers ping the client first.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, key: constants.RedisKeyBlockList}
}

func (s *RedisStore) IsBlocked(ctx context.Context, addr string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, addr).Result()
	if err != nil {
		return false, fmt.Errorf("%w: is blocked: %w", errs.ErrStorage, err)
	}
	return ok, nil
}

func (s *RedisStore) Block(ctx context.Context, addr string) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.key, addr)
	pipe.HSetNX(ctx, s.key+metaSuffix, addr, time.Now().UTC().Format(time.RFC3339))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: block: %w", errs.ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) Unblock(ctx context.Context, addr string) (bool, error) {
	pipe := s.client.TxPipeline()
	removed := pipe.SRem(ctx, s.key, addr)
	pipe.HDel(ctx, s.key+metaSuffix, addr)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: unblock: %w", errs.ErrStorage, err)
	}
	return removed.Val() > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
