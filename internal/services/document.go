package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/repository"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DocumentService 文档管理服务
// 负责文档的登记、查询、归属校验和删除
type DocumentService struct {
	registry repository.DocumentRegistry // 文档注册表
	vectorDB vectordb.Repository         // 向量仓库
	logger   *logrus.Logger              // 日志记录器
}

// NewDocumentService 创建文档管理服务实例
func NewDocumentService(
	registry repository.DocumentRegistry,
	vectorDB vectordb.Repository,
	logger *logrus.Logger,
) *DocumentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DocumentService{
		registry: registry,
		vectorDB: vectorDB,
		logger:   logger,
	}
}

// RegisterRequest 文档登记请求
type RegisterRequest struct {
	OwnerID   string                 // 文档所有者
	FileName  string                 // 文件名
	SourceURL string                 // 文档来源地址
	Metadata  map[string]interface{} // 附加元数据
}

// Register 登记新文档
// 创建待处理状态的文档记录，实际的下载和解析由入库流程完成
func (s *DocumentService) Register(ctx context.Context, req RegisterRequest) (*models.Document, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if req.SourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}

	doc := &models.Document{
		ID:        uuid.NewString(),
		OwnerID:   req.OwnerID,
		FileName:  req.FileName,
		SourceURL: req.SourceURL,
		Status:    models.DocStatusPending,
	}

	if req.Metadata != nil {
		if err := doc.SetMetadata(req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %v", err)
		}
	}

	if err := s.registry.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %v", err)
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"file_name":   doc.FileName,
	}).Info("Document registered")

	return doc, nil
}

// GetForOwner 获取文档并校验归属
// 文档不存在返回ErrDocumentNotFound，归属他人返回ErrUnauthorized，两者严格区分
func (s *DocumentService) GetForOwner(ctx context.Context, documentID, ownerID string) (*models.Document, error) {
	doc, err := s.registry.GetByID(documentID)
	if err != nil {
		return nil, err
	}

	if doc.OwnerID != ownerID {
		return nil, models.ErrUnauthorized
	}

	return doc, nil
}

// List 列出指定所有者的文档
func (s *DocumentService) List(ctx context.Context, ownerID string, offset, limit int) ([]*models.Document, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.registry.List(ownerID, offset, limit)
}

// Delete 删除文档及其全部向量数据
func (s *DocumentService) Delete(ctx context.Context, documentID, ownerID string) error {
	// 先做归属校验
	if _, err := s.GetForOwner(ctx, documentID, ownerID); err != nil {
		return err
	}

	// 先清理向量数据，再删除文档记录
	deleted, err := s.vectorDB.DeleteByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document vectors: %v", err)
	}

	if err := s.registry.Delete(documentID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"document_id":    documentID,
		"owner_id":       ownerID,
		"chunks_deleted": deleted,
	}).Info("Document deleted")

	return nil
}
