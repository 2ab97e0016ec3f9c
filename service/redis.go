package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TIANLI0/CompositeKit/config"
	"github.com/TIANLI0/CompositeKit/model"
	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func dataKey(key string) string { return "composite:" + key }
func metaKey(key string) string { return "composite:" + key + ":meta" }

// GetComposite 从缓存获取合成结果，未命中返回 nil
func (s *RedisService) GetComposite(ctx context.Context, key string) (*model.CompositeResult, error) {
	values, err := s.client.MGet(ctx, metaKey(key), dataKey(key)).Result()
	if err != nil {
		return nil, err
	}

	meta, ok1 := values[0].(string)
	data, ok2 := values[1].(string)
	if !ok1 || !ok2 {
		return nil, nil
	}

	var result model.CompositeResult
	if err := json.Unmarshal([]byte(meta), &result); err != nil {
		utils.Logger.Error("failed to unmarshal composite metadata",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}
	result.Key = key
	result.Data = []byte(data)

	return &result, nil
}

// SetComposite 写入合成结果及其元数据
func (s *RedisService) SetComposite(ctx context.Context, key string, result *model.CompositeResult) error {
	if result == nil || len(result.Data) == 0 {
		return errors.New("empty composite result")
	}

	meta, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey(key), result.Data, s.ttl)
		pipe.Set(ctx, metaKey(key), meta, s.ttl)
		return nil
	})
	return err
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
