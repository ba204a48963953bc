package taskqueue

import (
	"context"
	"time"
)

// Queue 任务队列接口
// 负责入库任务的投递和状态查询
type Queue interface {
	// EnqueueIngest 投递一个文档入库任务，返回任务ID
	EnqueueIngest(ctx context.Context, documentID string) (string, error)

	// GetTask 获取任务信息
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// GetTasksByDocument 获取文档关联的所有任务
	GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error)

	// WaitForTask 阻塞等待任务进入终态，timeout为0表示不限时
	WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error)

	// Close 关闭队列连接
	Close() error
}

// IngestFunc 入库任务的执行函数
// 由服务层注入，返回的结果会序列化后记录到任务中
type IngestFunc func(ctx context.Context, documentID string) (*IngestResult, error)

// Config 队列配置
type Config struct {
	RedisAddr     string        // Redis地址
	RedisPassword string        // Redis密码
	RedisDB       int           // Redis数据库
	Concurrency   int           // 并发处理任务数
	RetryLimit    int           // 最大重试次数
	RetryDelay    time.Duration // 重试延迟
}

// DefaultConfig 返回默认队列配置
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 4,
		RetryLimit:  3,
		RetryDelay:  time.Minute,
	}
}
