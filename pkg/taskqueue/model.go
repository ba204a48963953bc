package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

// TaskDocumentIngest 文档入库任务
// 覆盖下载、提取、分块、向量化到入库的完整流程
const TaskDocumentIngest TaskType = "document:ingest"

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务记录
// 队列侧的任务账本，与文档状态机相互独立
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	DocumentID  string          `json:"document_id"`  // 关联的文档ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Result      json.RawMessage `json:"result"`       // 任务结果数据
	Error       string          `json:"error"`        // 错误信息
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
}

// IngestResult 文档入库任务的结果数据
type IngestResult struct {
	DocumentID   string `json:"document_id"`   // 文档ID
	ChunkCount   int    `json:"chunk_count"`   // 入库的分块数量
	PageCount    int    `json:"page_count"`    // 页数（PDF文档）
	DocumentType string `json:"document_type"` // 检测到的文档类型
}

// TaskError 任务错误类型
type TaskError string

// Error 实现error接口
func (e TaskError) Error() string {
	return string(e)
}

// ErrTaskNotFound 任务未找到错误
var ErrTaskNotFound = TaskError("task not found")

// ErrTaskTimeout 等待任务超时错误
var ErrTaskTimeout = TaskError("task timed out")
