package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/sot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.SnapshotStore using Redis.
// Snapshots are JSON strings indexed by a sorted set scored by tick.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for snapshots.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock replaces the clock used to prune expired index entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "sot:snapshot:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(tick uint64) string {
	return s.prefix + strconv.FormatUint(tick, 10)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) expiryKey() string {
	return s.prefix + "expiry"
}

// Save persists the snapshot to Redis.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	member := strconv.FormatUint(snap.Tick, 10)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(snap.Tick), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: float64(snap.Tick), Member: member})
	if s.ttl > 0 {
		pipe.ZAdd(ctx, s.expiryKey(), backend.Z{
			Score:  float64(s.now().Add(s.ttl).Unix()),
			Member: member,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot of a tick.
func (s *Store) Load(ctx context.Context, tick uint64) (*domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(tick)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Latest retrieves the snapshot with the highest tick.
func (s *Store) Latest(ctx context.Context) (*domain.Snapshot, error) {
	if err := s.prune(ctx); err != nil {
		return nil, err
	}
	members, err := s.client.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(members) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	tick, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt index member %q: %w", members[0], err)
	}
	return s.Load(ctx, tick)
}

// List returns the stored ticks in ascending order.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	if err := s.prune(ctx); err != nil {
		return nil, err
	}
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	ticks := make([]uint64, 0, len(members))
	for _, m := range members {
		tick, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt index member %q: %w", m, err)
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

// prune lazily drops index entries whose key has expired.
func (s *Store) prune(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	max := strconv.FormatInt(s.now().Unix(), 10)
	expired, err := s.client.ZRangeByScore(ctx, s.expiryKey(), &backend.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return fmt.Errorf("failed to prune expired snapshots: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	members := make([]interface{}, len(expired))
	for i, m := range expired {
		members[i] = m
	}
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, s.indexKey(), members...)
	pipe.ZRem(ctx, s.expiryKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to prune expired snapshots: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
