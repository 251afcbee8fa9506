package cache

import (
	"fmt"
	"strings"
	"time"
)

// Cache 转写和OCR结果的缓存接口
// found为false表示键不存在，err只在后端访问失败时返回
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Config 缓存配置
type Config struct {
	Type            string        // 缓存后端：memory 或 redis
	RedisAddr       string        // Redis地址
	RedisPassword   string        // Redis密码
	RedisDB         int           // Redis数据库编号
	DefaultTTL      time.Duration // 默认过期时间
	CleanupInterval time.Duration // 内存缓存的过期清理间隔
}

// DefaultConfig 返回默认缓存配置
// 转写和OCR结果默认保留一天
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// NewCache 按配置创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch config.Type {
	case "", "memory":
		return NewMemoryCache(config)
	case "redis":
		return NewRedisCache(config)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", config.Type)
	}
}

// GenerateCacheKey 拼接缓存键，各部分以冒号分隔
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
