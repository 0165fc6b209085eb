package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/types"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

// Redis 键值存储适配器：文件MD5去重集合 + 候选人长文档缓存
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	// 挂载OpenTelemetry追踪钩子
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Warn().Err(err).Msg("Redis追踪钩子挂载失败")
	}

	logger.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Redis连接就绪")
	return &Redis{Client: client, cfg: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// dedupMember 同一文件投同一岗位只去重一次，不同岗位互不影响
func dedupMember(jobID, md5sum string) string {
	return jobID + ":" + md5sum
}

// MarkResumeSeen 将文件MD5加入去重集合，返回是否首次出现
func (r *Redis) MarkResumeSeen(ctx context.Context, jobID, md5sum string) (bool, error) {
	added, err := r.Client.SAdd(ctx, constants.ScreenedFileMD5SetKey, dedupMember(jobID, md5sum)).Result()
	if err != nil {
		return false, fmt.Errorf("写入去重集合失败: %w", err)
	}
	return added > 0, nil
}

// adviceKey 生成长文档缓存键
func adviceKey(kind, applicationID string) string {
	return fmt.Sprintf(constants.AdviceCacheKeyFmt, kind, applicationID)
}

// GetAdviceDocument 读取长文档缓存，未命中返回ErrCacheMiss
func (r *Redis) GetAdviceDocument(ctx context.Context, kind, applicationID string) (*types.AdviceDocument, error) {
	data, err := r.Client.Get(ctx, adviceKey(kind, applicationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("读取长文档缓存失败: %w", err)
	}

	var doc types.AdviceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// 缓存内容损坏按未命中处理，重新生成
		logger.Warn().Err(err).Str("application_id", applicationID).Msg("长文档缓存内容损坏")
		return nil, ErrCacheMiss
	}
	return &doc, nil
}

// SetAdviceDocument 写入长文档缓存，ttl<=0表示不过期
func (r *Redis) SetAdviceDocument(ctx context.Context, kind, applicationID string, doc *types.AdviceDocument, ttl time.Duration) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化长文档失败: %w", err)
	}
	if err := r.Client.Set(ctx, adviceKey(kind, applicationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("写入长文档缓存失败: %w", err)
	}
	return nil
}
