package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auracare-backend/config"

	"github.com/go-redis/redis/v8"
)

// 最新体征快照在Redis中的保留时间，略长于轮询间隔的若干倍即可
const vitalsCacheTTL = 30 * time.Second

// InterfaceRedisService 定义Redis缓存服务接口
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	CacheVitals(patientID uint, snapshot *VitalsSnapshot) error
	GetCachedVitals(patientID uint) (*VitalsSnapshot, error)
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "", // No password set
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	return &RedisService{
		Client: client,
		Ctx:    ctx,
	}
}

// NewRedisServiceWithClient 使用已有客户端创建Redis服务（容器/测试用）
func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

func vitalsCacheKey(patientID uint) string {
	return fmt.Sprintf("vitals:latest:%d", patientID)
}

// CacheVitals 缓存患者的最新体征快照，供REST读取与订阅即时回发
func (s *RedisService) CacheVitals(patientID uint, snapshot *VitalsSnapshot) error {
	return s.Set(vitalsCacheKey(patientID), snapshot, vitalsCacheTTL)
}

// GetCachedVitals 读取患者的最新体征快照，缓存未命中时返回 redis.Nil
func (s *RedisService) GetCachedVitals(patientID uint) (*VitalsSnapshot, error) {
	var snapshot VitalsSnapshot
	if err := s.Get(vitalsCacheKey(patientID), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
