package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// 任务记录键前缀
	taskKeyPrefix = "ingest_task:"
	// 文档任务集合键前缀
	documentTasksKeyPrefix = "document_tasks:"
	// 任务记录过期时间
	taskExpiry = 7 * 24 * time.Hour
	// 等待任务时的轮询间隔
	waitPollInterval = time.Second
)

// RedisQueue Redis任务队列实现
// 投递走asynq，任务账本直接存在Redis里供查询
type RedisQueue struct {
	client      *asynq.Client  // 任务投递客户端
	redisClient *redis.Client  // 任务账本存储
	cfg         *Config        // 队列配置
	logger      *logrus.Logger // 日志记录器
}

// NewRedisQueue 创建Redis任务队列实例
func NewRedisQueue(cfg *Config, logger *logrus.Logger) (*RedisQueue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{
		client:      asynq.NewClient(redisOpt),
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// EnqueueIngest 投递文档入库任务
func (q *RedisQueue) EnqueueIngest(ctx context.Context, documentID string) (string, error) {
	if documentID == "" {
		return "", errors.New("document ID cannot be empty")
	}

	task := &Task{
		ID:         uuid.New().String(),
		Type:       TaskDocumentIngest,
		DocumentID: documentID,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := q.saveTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task record: %w", err)
	}

	asynqTask := asynq.NewTask(string(TaskDocumentIngest), []byte(task.ID))
	if _, err := q.client.EnqueueContext(ctx, asynqTask, asynq.MaxRetry(q.cfg.RetryLimit)); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"document_id": documentID,
	}).Info("Ingest task enqueued")

	return task.ID, nil
}

// GetTask 获取任务信息
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task record: %w", err)
	}
	return &task, nil
}

// GetTasksByDocument 获取文档关联的所有任务
func (q *RedisQueue) GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, documentTasksKeyPrefix+documentID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			// 过期被清理的任务跳过
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// WaitForTask 轮询等待任务进入终态
func (q *RedisQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == StatusCompleted || task.Status == StatusFailed {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrTaskTimeout
		case <-ticker.C:
		}
	}
}

// Close 关闭队列连接
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redisClient.Close()
}

// saveTask 写入任务记录并更新文档任务集合
func (q *RedisQueue) saveTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.redisClient.Set(ctx, taskKeyPrefix+task.ID, data, taskExpiry).Err(); err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}

	if task.DocumentID != "" {
		docKey := documentTasksKeyPrefix + task.DocumentID
		if err := q.redisClient.SAdd(ctx, docKey, task.ID).Err(); err != nil {
			return fmt.Errorf("failed to index task by document: %w", err)
		}
		q.redisClient.Expire(ctx, docKey, taskExpiry)
	}

	return nil
}

// updateStatus 更新任务状态和结果
func (q *RedisQueue) updateStatus(ctx context.Context, taskID string, status TaskStatus, result *IngestResult, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now
	task.Error = errMsg

	if status == StatusProcessing && task.StartedAt == nil {
		task.StartedAt = &now
	}
	if status == StatusCompleted || status == StatusFailed {
		task.CompletedAt = &now
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal task result: %w", err)
		}
		task.Result = data
	}

	return q.saveTask(ctx, task)
}

// IngestWorker 入库任务工作者
// 从队列中消费入库任务并调用注入的执行函数
type IngestWorker struct {
	server *asynq.Server
	queue  *RedisQueue
	run    IngestFunc
	logger *logrus.Logger
}

// NewIngestWorker 创建入库任务工作者
func NewIngestWorker(queue *RedisQueue, run IngestFunc, logger *logrus.Logger) *IngestWorker {
	if logger == nil {
		logger = queue.logger
	}

	cfg := queue.cfg
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return cfg.RetryDelay
			},
		},
	)

	return &IngestWorker{
		server: server,
		queue:  queue,
		run:    run,
		logger: logger,
	}
}

// Start 启动工作者，非阻塞
func (w *IngestWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(string(TaskDocumentIngest), w.handleIngest)
	return w.server.Start(mux)
}

// Stop 停止工作者，等待处理中的任务结束
func (w *IngestWorker) Stop() {
	w.server.Shutdown()
}

// handleIngest 执行单个入库任务
// 返回错误时asynq会按配置重试
func (w *IngestWorker) handleIngest(ctx context.Context, asynqTask *asynq.Task) error {
	taskID := string(asynqTask.Payload())

	task, err := w.queue.GetTask(ctx, taskID)
	if err != nil {
		w.logger.WithError(err).WithField("task_id", taskID).Error("Failed to load task record")
		return err
	}

	if err := w.queue.updateStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
		w.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to mark task as processing")
	}

	result, err := w.run(ctx, task.DocumentID)
	if err != nil {
		if updateErr := w.queue.updateStatus(ctx, taskID, StatusFailed, nil, err.Error()); updateErr != nil {
			w.logger.WithError(updateErr).WithField("task_id", taskID).Error("Failed to record task failure")
		}
		return err
	}

	if err := w.queue.updateStatus(ctx, taskID, StatusCompleted, result, ""); err != nil {
		w.logger.WithError(err).WithField("task_id", taskID).Error("Failed to record task completion")
	}

	w.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"document_id": task.DocumentID,
	}).Info("Ingest task completed")

	return nil
}
