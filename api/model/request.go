package model

import "mime/multipart"

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为20，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// DocumentRegisterRequest 文档登记请求
// 按来源地址登记文档，内容由处理流程下载
type DocumentRegisterRequest struct {
	FileName  string                 `json:"file_name" binding:"omitempty,max=255"` // 文件名
	SourceURL string                 `json:"source_url" binding:"required"`         // 文档来源地址
	Metadata  map[string]interface{} `json:"metadata" binding:"omitempty"`          // 附加元数据
	Process   bool                   `json:"process" binding:"omitempty"`           // 是否立即开始处理
}

// DocumentUploadRequest 文档上传请求
type DocumentUploadRequest struct {
	File    *multipart.FileHeader `form:"file" binding:"required"`     // 文件对象
	Process bool                  `form:"process" binding:"omitempty"` // 是否立即开始处理
}

// DocumentIDRequest 按ID访问文档的路径参数
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required"` // 文档ID
}

// DocumentListRequest 文档列表请求
type DocumentListRequest struct {
	PaginationRequest
}

// ChatRequest 文档问答请求
type ChatRequest struct {
	DocumentID string `json:"document_id" binding:"required"`       // 文档ID
	Question   string `json:"question" binding:"required,max=2000"` // 问题内容
}

// QuizRequest 文档出题请求
type QuizRequest struct {
	DocumentID   string `json:"document_id" binding:"required"`                        // 文档ID
	NumQuestions int    `json:"num_questions" binding:"required,min=1,max=20"`         // 题目数量
	Difficulty   string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"` // 难度
}

// TaskIDRequest 按ID访问任务的路径参数
type TaskIDRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}
