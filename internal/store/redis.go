package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // default "favourpro:"
	Default  model.Record
	Logger   *slog.Logger
}

// RedisStore keeps records as JSON values in one hash and their insertion
// order in a list:
//
//	{prefix}records -> hash key => {"favour":..,"attitude":..,"relationship":..}
//	{prefix}order   -> list of keys, oldest first
type RedisStore struct {
	defaults

	mu      sync.Mutex
	client  *redis.Client
	records string
	order   string
	logger  *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "favourpro:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}

	return &RedisStore{
		defaults: defaults{rec: opts.Default.Fill(model.DefaultRecord)},
		client:   client,
		records:  opts.Prefix + "records",
		order:    opts.Prefix + "order",
		logger: loggerOrDefault(opts.Logger).With(
			observability.LogFieldBackend, BackendRedis,
			observability.LogFieldPath, opts.Addr),
	}, nil
}

// Get returns the stored record for key, or the default. Redis errors are
// logged and answered with the default.
func (s *RedisStore) Get(ctx context.Context, key model.Key) model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, _, err := s.get(ctx, key)
	if err != nil {
		s.logger.Warn("read record, using default", observability.LogFieldIdentity, string(key), "error", err)
		return s.Default()
	}
	return rec
}

func (s *RedisStore) get(ctx context.Context, key model.Key) (model.Record, bool, error) {
	def := s.Default()
	raw, err := s.client.HGet(ctx, s.records, string(key)).Result()
	if errors.Is(err, redis.Nil) {
		return def, false, nil
	}
	if err != nil {
		return def, false, errors.Wrap(err, "hget")
	}
	rec, err := s.decode(raw)
	if err != nil {
		return def, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) decode(raw string) (model.Record, error) {
	def := s.Default()
	var fr fileRecord
	if err := json.Unmarshal([]byte(raw), &fr); err != nil {
		return def, errors.Wrap(err, "decode record")
	}
	rec := model.Record{Favour: def.Favour, Attitude: fr.Attitude, Relationship: fr.Relationship}
	if f, ok := CoerceFavour(rawFavour(fr.Favour)); ok {
		rec.Favour = f
	}
	return rec.Fill(def), nil
}

// Put merges p into the record for key.
func (s *RedisStore) Put(ctx context.Context, key model.Key, p PutParams) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists, err := s.get(ctx, key)
	if err != nil {
		return prev, err
	}
	rec := merge(prev, p)

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, errors.Wrap(err, "encode record")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.records, string(key), data)
		if !exists {
			pipe.RPush(ctx, s.order, string(key))
		}
		return nil
	})
	if err != nil {
		return rec, errors.Wrap(err, "write record")
	}
	return rec, nil
}

// Delete removes the record for key.
func (s *RedisStore) Delete(ctx context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.delete(ctx, []string{string(key)})
	return n > 0, err
}

func (s *RedisStore) delete(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var hdel *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hdel = pipe.HDel(ctx, s.records, keys...)
		for _, k := range keys {
			pipe.LRem(ctx, s.order, 0, k)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete records")
	}
	return int(hdel.Val()), nil
}

// DeleteAll removes every record.
func (s *RedisStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.client.HLen(ctx, s.records).Result()
	if err != nil {
		return 0, errors.Wrap(err, "count records")
	}
	if err := s.client.Del(ctx, s.records, s.order).Err(); err != nil {
		return 0, errors.Wrap(err, "delete records")
	}
	return int(n), nil
}

// DeleteMatching removes the records selected by pred.
func (s *RedisStore) DeleteMatching(ctx context.Context, pred Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.all(ctx)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, e := range entries {
		if pred(e.Key, e.Record) {
			doomed = append(doomed, string(e.Key))
		}
	}
	return s.delete(ctx, doomed)
}

// All returns every record in insertion order.
func (s *RedisStore) All(ctx context.Context) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all(ctx)
}

func (s *RedisStore) all(ctx context.Context) ([]model.Entry, error) {
	keys, err := s.client.LRange(ctx, s.order, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list order")
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, s.records, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}

	entries := make([]model.Entry, 0, len(keys))
	for i, k := range keys {
		raw, ok := vals[i].(string)
		if !ok {
			continue
		}
		rec, err := s.decode(raw)
		if err != nil {
			s.logger.Warn("skip undecodable record", observability.LogFieldIdentity, k, "error", err)
			continue
		}
		entries = append(entries, model.Entry{Key: model.Key(k), Record: rec})
	}
	return entries, nil
}

// Close closes the client. Writes are already durable in Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
