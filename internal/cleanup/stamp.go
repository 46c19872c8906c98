package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// stampKey 上次清理尝试时间在 Redis 中的键
const stampKey = "classhub:cleanup:last_run"

// StampStore 清理时间戳存储
// 记录上一次清理尝试的时间，用于节流判断。
type StampStore interface {
	// Last 返回上次清理尝试时间；从未清理过时返回零值时间
	Last(ctx context.Context) (time.Time, error)
	// Mark 记录本次清理尝试时间
	Mark(ctx context.Context, at time.Time) error
}

// RedisStampStore 基于 Redis 的时间戳存储
type RedisStampStore struct {
	client *redis.Client
}

// NewRedisStampStore 创建 Redis 时间戳存储
func NewRedisStampStore(client *redis.Client) *RedisStampStore {
	return &RedisStampStore{client: client}
}

// Last 读取上次清理尝试时间
func (s *RedisStampStore) Last(ctx context.Context) (time.Time, error) {
	val, err := s.client.Get(ctx, stampKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("读取清理时间戳失败: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析清理时间戳失败: %w", err)
	}
	return t, nil
}

// Mark 写入本次清理尝试时间
func (s *RedisStampStore) Mark(ctx context.Context, at time.Time) error {
	if err := s.client.Set(ctx, stampKey, at.Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("写入清理时间戳失败: %w", err)
	}
	return nil
}

// MemoryStampStore 内存时间戳存储，单机部署与测试使用
type MemoryStampStore struct {
	mu   sync.Mutex
	last time.Time
}

// NewMemoryStampStore 创建内存时间戳存储
func NewMemoryStampStore() *MemoryStampStore {
	return &MemoryStampStore{}
}

// Last 读取上次清理尝试时间
func (s *MemoryStampStore) Last(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

// Mark 写入本次清理尝试时间
func (s *MemoryStampStore) Mark(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = at
	return nil
}
