package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTableTTL = 24 * time.Hour

// RedisStore keeps tables as JSON with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL (redis:// or rediss://) and pings it.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis table store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTableTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func tableKey(room string) string { return "duel:table:" + strings.TrimSpace(room) }

func (s *RedisStore) Load(ctx context.Context, room string) (*Table, error) {
	raw, err := s.rdb.Get(ctx, tableKey(room)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", room, err)
	}
	return &t, nil
}

// Save writes t under WATCH so a concurrent writer on another instance turns
// into ErrConflict instead of a lost update.
func (s *RedisStore) Save(ctx context.Context, t *Table) error {
	if t == nil || strings.TrimSpace(t.Room) == "" {
		return ErrInvalidArgs
	}
	key := tableKey(t.Room)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cur Table
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			stored = cur.Version
		}
		if stored != t.Version {
			return ErrConflict
		}

		next := t.clone()
		next.Version++
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, payload, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		t.Version = next.Version
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, room string) error {
	return s.rdb.Del(ctx, tableKey(room)).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
