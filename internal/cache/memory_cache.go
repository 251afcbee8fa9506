package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内缓存，适合单实例部署
// 重启后缓存丢失，重复上传的文件会重新转写
type MemoryCache struct {
	store      *gocache.Cache
	defaultTTL time.Duration
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultConfig().DefaultTTL
	}
	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = DefaultConfig().CleanupInterval
	}

	return &MemoryCache{
		store:      gocache.New(ttl, cleanup),
		defaultTTL: ttl,
	}, nil
}

func (m *MemoryCache) Get(key string) (string, bool, error) {
	value, found := m.store.Get(key)
	if !found {
		return "", false, nil
	}
	text, ok := value.(string)
	if !ok {
		// 非字符串值视为未命中
		return "", false, nil
	}
	return text, true, nil
}

func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.store.Delete(key)
	return nil
}

func (m *MemoryCache) Clear() error {
	m.store.Flush()
	return nil
}
