// Package redisstore implements a session store backed by Redis.
// Record lifetime is delegated to Redis key TTLs, so the backend runs
// no maintenance of its own.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/session"
)

// Defaults applied by New when an option is zero.
const (
	DefaultPrefix = "session:"
	DefaultTTL    = 24 * time.Hour
)

// Options configures a Store.
type Options struct {
	// Addr is the Redis server address.
	Addr string

	// Prefix is prepended to every session key.
	Prefix string

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration
}

// Store keeps each session as a JSON value under a prefixed key.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

var _ session.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with a short ping.
func New(opts Options) (*Store, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{Addr: opts.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Store{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		log:    logger.WithComponent("store.redis"),
	}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(sid string) string {
	return s.prefix + sid
}

// Set writes the payload for sid with a fresh TTL.
func (s *Store) Set(ctx context.Context, sid string, data map[string]any) error {
	if sid == "" {
		return session.InvalidSIDError{SID: sid, Reason: "empty"}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sid, err)
	}
	if err := s.client.Set(ctx, s.key(sid), raw, s.ttl).Err(); err != nil {
		return session.ReadError{Op: "set", SID: sid, Err: err}
	}
	return nil
}

// Get returns the payload for sid, or (nil, nil) when Redis has no key
// (including keys Redis already expired).
func (s *Store) Get(ctx context.Context, sid string) (map[string]any, error) {
	raw, err := s.client.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, session.ReadError{Op: "get", SID: sid, Err: err}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, session.CorruptRecordError{SID: sid, Source: s.key(sid), Err: err}
	}
	return session.ReviveTimestamps(data), nil
}

// Destroy removes the key for sid. Absence is not an error.
func (s *Store) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return session.ReadError{Op: "del", SID: sid, Err: err}
	}
	return nil
}

// Touch replaces the payload and refreshes the TTL of an existing key.
// An absent sid is a no-op.
func (s *Store) Touch(ctx context.Context, sid string, data map[string]any) error {
	exists, err := s.client.Exists(ctx, s.key(sid)).Result()
	if err != nil {
		return session.ReadError{Op: "exists", SID: sid, Err: err}
	}
	if exists == 0 {
		return nil
	}
	return s.Set(ctx, sid, data)
}

// All scans the prefix and returns every stored record. Redis expires
// keys itself, so everything returned is live.
func (s *Store) All(ctx context.Context) ([]session.Record, error) {
	var out []session.Record
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		sid := key[len(s.prefix):]

		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and read
			}
			return nil, session.ReadError{Op: "get", SID: sid, Err: err}
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, session.CorruptRecordError{SID: sid, Source: key, Err: err}
		}

		rec := session.Record{SID: sid, Data: session.ReviveTimestamps(data)}
		if ttl, err := s.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			rec.ExpiresAt = time.Now().Add(ttl)
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, session.ReadError{Op: "scan", Err: err}
	}
	return out, nil
}

// Len counts keys under the prefix.
func (s *Store) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, session.ReadError{Op: "scan", Err: err}
	}
	return n, nil
}

// Clear deletes every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return session.ReadError{Op: "del", Err: err}
		}
	}
	if err := iter.Err(); err != nil {
		return session.ReadError{Op: "scan", Err: err}
	}
	return nil
}
