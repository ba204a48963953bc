package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache 缓存接口
// 用于问答结果等可重复计算内容的短期存储
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现
var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	// 默认使用内存缓存
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute * 10,
	}
}

// AnswerKey 生成问答结果的缓存键
// 同一用户对同一文档的相同问题命中同一个键，问题文本参与哈希避免键过长
func AnswerKey(ownerID, documentID, question string) string {
	digest := sha256.Sum256([]byte(question))
	return "answer:" + ownerID + ":" + documentID + ":" + hex.EncodeToString(digest[:16])
}
