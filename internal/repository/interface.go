package repository

import "github.com/fyerfyer/doc-quiz-system/internal/models"

// DocumentRegistry 文档注册表接口
// 负责文档归属、来源和处理状态的存储与检索
type DocumentRegistry interface {
	// Create 创建文档记录
	Create(doc *models.Document) error

	// Update 更新文档记录
	Update(doc *models.Document) error

	// GetByID 根据ID获取文档
	GetByID(id string) (*models.Document, error)

	// List 列出指定所有者的文档，支持分页
	List(ownerID string, offset, limit int) ([]*models.Document, int64, error)

	// Delete 删除文档记录
	Delete(id string) error

	// UpdateStatus 更新文档状态，校验状态机转换合法性
	UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error

	// UpdateChunkCount 更新文档的分块数量
	UpdateChunkCount(id string, count int) error
}
