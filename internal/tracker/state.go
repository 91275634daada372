// internal/tracker/state.go
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStateStore keeps onboarding state in process. State is lost on restart.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[ConversationKey]OnboardingState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[ConversationKey]OnboardingState)}
}

func (m *MemoryStateStore) Get(_ context.Context, key ConversationKey) (OnboardingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key], nil
}

func (m *MemoryStateStore) Set(_ context.Context, key ConversationKey, state OnboardingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = state
	return nil
}

func (m *MemoryStateStore) Clear(_ context.Context, key ConversationKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

type RedisStateConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStateStore keeps onboarding state in Redis so it survives restarts and
// is shared between bot replicas. Abandoned conversations expire after TTL.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStateStore(cfg RedisStateConfig) (*RedisStateStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "calorie-bot:onboarding:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStateStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisStateStore) redisKey(key ConversationKey) string {
	return r.prefix + key.String()
}

func (r *RedisStateStore) Get(ctx context.Context, key ConversationKey) (OnboardingState, error) {
	v, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("redis get: %w", err)
	}
	return OnboardingState(v), nil
}

func (r *RedisStateStore) Set(ctx context.Context, key ConversationKey, state OnboardingState) error {
	if err := r.client.Set(ctx, r.redisKey(key), string(state), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Clear(ctx context.Context, key ConversationKey) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Close() error {
	return r.client.Close()
}
