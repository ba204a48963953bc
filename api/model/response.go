package model

import (
	"time"

	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/pkg/taskqueue"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentResponse 文档信息响应
type DocumentResponse struct {
	ID           string                 `json:"id"`                      // 文档ID
	FileName     string                 `json:"file_name"`               // 文件名
	Status       string                 `json:"status"`                  // 处理状态
	Error        string                 `json:"error,omitempty"`         // 失败时的概括性消息
	ChunkCount   int                    `json:"chunk_count"`             // 已入库的分块数量
	PageCount    int                    `json:"page_count,omitempty"`    // 页数（PDF文档）
	DocumentType string                 `json:"document_type,omitempty"` // 文档类型
	CreatedAt    time.Time              `json:"created_at"`              // 创建时间
	ProcessedAt  *time.Time             `json:"processed_at,omitempty"`  // 处理完成时间
	Metadata     map[string]interface{} `json:"metadata,omitempty"`      // 元数据
	TaskID       string                 `json:"task_id,omitempty"`       // 关联的处理任务ID
}

// NewDocumentResponse 从文档模型构建响应
func NewDocumentResponse(doc *models.Document) DocumentResponse {
	meta, err := doc.GetMetadata()
	if err != nil {
		meta = nil
	}
	return DocumentResponse{
		ID:           doc.ID,
		FileName:     doc.FileName,
		Status:       string(doc.Status),
		Error:        doc.Error,
		ChunkCount:   doc.ChunkCount,
		PageCount:    doc.PageCount,
		DocumentType: doc.DocumentType,
		CreatedAt:    doc.CreatedAt,
		ProcessedAt:  doc.ProcessedAt,
		Metadata:     meta,
	}
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int64              `json:"total"`     // 总数量
	Page      int                `json:"page"`      // 当前页码
	PageSize  int                `json:"page_size"` // 每页大小
	Documents []DocumentResponse `json:"documents"` // 文档列表
}

// DocumentDeleteResponse 文档删除响应
type DocumentDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	ID      string `json:"id"`      // 文档ID
}

// ChatResponse 文档问答响应
type ChatResponse struct {
	DocumentID string       `json:"document_id"` // 文档ID
	Question   string       `json:"question"`    // 用户问题
	Answer     string       `json:"answer"`      // 生成的回答
	Sources    []llm.Source `json:"sources"`     // 回答依据的分块原文及元数据
	HasContext bool         `json:"has_context"` // 是否检索到了可用上下文
}

// QuizQuestion 出题响应中的单道题目
type QuizQuestion struct {
	Question           string   `json:"question"`             // 题干
	Options            []string `json:"options"`              // 4个选项
	CorrectAnswerIndex int      `json:"correct_answer_index"` // 正确选项下标
	Explanation        string   `json:"explanation"`          // 答案解析
}

// QuizResponse 文档出题响应
type QuizResponse struct {
	DocumentID     string         `json:"document_id"`     // 文档ID
	Difficulty     string         `json:"difficulty"`      // 难度
	Questions      []QuizQuestion `json:"questions"`       // 题目列表
	GeneratedCount int            `json:"generated_count"` // 实际生成的题目数量
	HasContext     bool           `json:"has_context"`     // 是否检索到了可用上下文
}

// NewQuizResponse 从生成结果构建响应
func NewQuizResponse(documentID, difficulty string, result *llm.QuizResult) QuizResponse {
	items := make([]QuizQuestion, len(result.Questions))
	for i, q := range result.Questions {
		items[i] = QuizQuestion{
			Question:           q.Question,
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Explanation:        q.Explanation,
		}
	}
	return QuizResponse{
		DocumentID:     documentID,
		Difficulty:     difficulty,
		Questions:      items,
		GeneratedCount: len(items),
		HasContext:     result.HasContext,
	}
}

// TaskResponse 任务状态响应
type TaskResponse struct {
	ID          string     `json:"id"`                     // 任务ID
	Type        string     `json:"type"`                   // 任务类型
	DocumentID  string     `json:"document_id"`            // 关联的文档ID
	Status      string     `json:"status"`                 // 任务状态
	Error       string     `json:"error,omitempty"`        // 错误信息
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始处理时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间
}

// NewTaskResponse 从任务记录构建响应
func NewTaskResponse(task *taskqueue.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Type:        string(task.Type),
		DocumentID:  task.DocumentID,
		Status:      string(task.Status),
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}
