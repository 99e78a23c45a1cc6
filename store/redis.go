package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds how often Update replays fn after a WATCH conflict.
const maxTxRetries = 5

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Redis stores every key as a plain string under "{namespace}:kv:{key}", so
// several profiles can share one server.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis connects and pings the server. An empty namespace is rejected.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("redis: namespace cannot be empty")
	}
	r := &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		namespace: opts.Namespace,
	}
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return r, nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) prefix() string { return r.namespace + ":kv:" }

func (r *Redis) key(k string) string { return r.prefix() + k }

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	return redisValue(r.rdb.Get(ctx, r.key(key)).Result())
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// Keys scans the namespace and returns the unprefixed keys in ascending order.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.rdb.Scan(ctx, cursor, r.prefix()+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, r.prefix()))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Update watches every key fn reads and commits its buffered writes in one
// MULTI/EXEC. A concurrent write to a watched key replays fn.
func (r *Redis) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			rt := &redisTx{r: r, tx: tx, writes: map[string]*string{}, watched: map[string]bool{}}
			if err := fn(rt); err != nil {
				return err
			}
			if len(rt.order) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, k := range rt.order {
					if v := rt.writes[k]; v != nil {
						pipe.Set(ctx, r.key(k), *v, 0)
					} else {
						pipe.Del(ctx, r.key(k))
					}
				}
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// redisTx buffers writes; a nil entry in writes marks a delete. Each key is
// watched once, on its first read, so a later read cannot move the version
// EXEC checks against.
type redisTx struct {
	r       *Redis
	tx      *redis.Tx
	writes  map[string]*string
	order   []string
	watched map[string]bool
}

func (t *redisTx) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	if !t.watched[key] {
		if err := t.tx.Watch(ctx, t.r.key(key)).Err(); err != nil {
			return "", false, err
		}
		t.watched[key] = true
	}
	return redisValue(t.tx.Get(ctx, t.r.key(key)).Result())
}

func (t *redisTx) Set(_ context.Context, key, value string) error {
	t.record(key, &value)
	return nil
}

func (t *redisTx) Delete(_ context.Context, key string) error {
	t.record(key, nil)
	return nil
}

func (t *redisTx) record(key string, v *string) {
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = v
}

func redisValue(v string, err error) (string, bool, error) {
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
