package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps cache stores in Redis so several edge instances can
// share them.
//
//	<prefix>stores         sorted set of store names scored by creation time
//	<prefix>store:<name>   hash of cache key -> encoded entry
//	<prefix>order:<name>   sorted set of cache keys scored by write time
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage wraps an existing client. An empty prefix defaults to
// "offline:".
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "offline:"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStorage(client, prefix), nil
}

func (r *RedisStorage) Close() error { return r.client.Close() }

func (r *RedisStorage) storesKey() string { return r.prefix + "stores" }

func (r *RedisStorage) Open(ctx context.Context, name string) (Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store name is required")
	}
	err := r.client.ZAddNX(ctx, r.storesKey(), redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: name,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", name, err)
	}
	return &redisStore{
		client:   r.client,
		name:     name,
		stores:   r.storesKey(),
		entries:  r.prefix + "store:" + name,
		ordering: r.prefix + "order:" + name,
	}, nil
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := r.client.ZRange(ctx, r.storesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return names, nil
}

func (r *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, r.storesKey(), name)
		pipe.Del(ctx, r.prefix+"store:"+name, r.prefix+"order:"+name)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete store %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

type redisStore struct {
	client   *redis.Client
	name     string
	stores   string
	entries  string
	ordering string
}

func (s *redisStore) Name() string { return s.name }

func (s *redisStore) Match(ctx context.Context, key string) (*Entry, error) {
	var (
		payload *redis.StringCmd
		score   *redis.FloatCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		payload = pipe.HGet(ctx, s.entries, key)
		score = pipe.ZScore(ctx, s.ordering, key)
		return nil
	})
	if errors.Is(payload.Err(), redis.Nil) {
		return nil, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("match %s: %w", key, err)
	}
	b, err := payload.Bytes()
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", key, err)
	}
	e := &Entry{}
	if err := e.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if score.Err() == nil {
		e.StoredAt = time.UnixMicro(int64(score.Val())).UTC()
	}
	return e, nil
}

func (s *redisStore) Put(ctx context.Context, key string, entry *Entry) error {
	payload, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.client.ZScore(ctx, s.stores, s.name).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("put %s: %w", key, ErrStoreNotFound)
		}
		return fmt.Errorf("put %s: %w", key, err)
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.entries, key, payload)
		pipe.ZAdd(ctx, s.ordering, redis.Z{Score: float64(storedAt.UnixMicro()), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.entries, key)
		pipe.ZRem(ctx, s.ordering, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return removed.Val() > 0, nil
}

func (s *redisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.entries).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.name, err)
	}
	return int(n), nil
}

func (s *redisStore) Evict(ctx context.Context, keep int) (int, error) {
	total, err := s.client.ZCard(ctx, s.ordering).Result()
	if err != nil {
		return 0, fmt.Errorf("evict %s: %w", s.name, err)
	}
	over := total - int64(keep)
	if over <= 0 {
		return 0, nil
	}
	oldest, err := s.client.ZRange(ctx, s.ordering, 0, over-1).Result()
	if err != nil {
		return 0, fmt.Errorf("evict %s: %w", s.name, err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}
	members := make([]interface{}, len(oldest))
	for i, k := range oldest {
		members[i] = k
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.entries, oldest...)
		pipe.ZRem(ctx, s.ordering, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("evict %s: %w", s.name, err)
	}
	return len(oldest), nil
}
