package repository

import (
	"errors"
	"time"

	"github.com/fyerfyer/doc-quiz-system/internal/database"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"gorm.io/gorm"
)

// docRegistry 文档注册表实现
type docRegistry struct {
	db *gorm.DB // 数据库连接
}

// NewDocumentRegistry 创建文档注册表实例
func NewDocumentRegistry() DocumentRegistry {
	return &docRegistry{
		db: database.MustDB(),
	}
}

// NewDocumentRegistryWithDB 使用指定的数据库连接创建文档注册表实例
func NewDocumentRegistryWithDB(db *gorm.DB) DocumentRegistry {
	if db == nil {
		db = database.MustDB()
	}
	return &docRegistry{
		db: db,
	}
}

// Create 创建文档记录
func (r *docRegistry) Create(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	if doc.OwnerID == "" {
		return errors.New("document owner ID cannot be empty")
	}

	return r.db.Create(doc).Error
}

// Update 更新文档记录
func (r *docRegistry) Update(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}

	return r.db.Save(doc).Error
}

// GetByID 根据ID获取文档
func (r *docRegistry) GetByID(id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出指定所有者的文档，支持分页
func (r *docRegistry) List(ownerID string, offset, limit int) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.Model(&models.Document{}).Where("owner_id = ?", ownerID)

	// 计算总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询当前页
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Delete 删除文档记录
func (r *docRegistry) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// UpdateStatus 更新文档状态
// 在事务内校验状态机转换的合法性再落库，更新语句带当前状态条件，
// 并发的转换请求只有一个能生效
func (r *docRegistry) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Where("id = ?", id).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrDocumentNotFound
			}
			return err
		}

		if !models.CanTransition(doc.Status, status) {
			return models.ErrInvalidTransition
		}

		updates := map[string]interface{}{
			"status":     status,
			"error":      errorMsg,
			"updated_at": time.Now(),
		}

		// 处理完成时记录完成时间
		if status == models.DocStatusReady {
			now := time.Now()
			updates["processed_at"] = &now
		}

		result := tx.Model(&models.Document{}).
			Where("id = ? AND status = ?", id, doc.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrInvalidTransition
		}
		return nil
	})
}

// UpdateChunkCount 更新文档的分块数量
func (r *docRegistry) UpdateChunkCount(id string, count int) error {
	return r.db.Model(&models.Document{}).Where("id = ?", id).
		Update("chunk_count", count).Error
}
