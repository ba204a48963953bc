package services

import (
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/repository"
	"github.com/sirupsen/logrus"
)

// StatusManager 文档状态管理器
// 所有状态写入都经过这里，保证状态机转换合法
type StatusManager struct {
	registry repository.DocumentRegistry // 文档注册表
	logger   *logrus.Logger              // 日志记录器
}

// NewStatusManager 创建状态管理器实例
func NewStatusManager(registry repository.DocumentRegistry, logger *logrus.Logger) *StatusManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &StatusManager{
		registry: registry,
		logger:   logger,
	}
}

// MarkProcessing 将文档标记为处理中
// pending、ready、failed状态的文档都允许进入处理，支持重新处理
func (m *StatusManager) MarkProcessing(documentID string) error {
	if err := m.registry.UpdateStatus(documentID, models.DocStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark document %s as processing: %w", documentID, err)
	}

	m.logger.WithField("document_id", documentID).Info("Document processing started")
	return nil
}

// MarkReady 将文档标记为处理完成并记录处理结果
func (m *StatusManager) MarkReady(documentID string, chunkCount, pageCount int, docType string) error {
	if err := m.registry.UpdateStatus(documentID, models.DocStatusReady, ""); err != nil {
		return fmt.Errorf("failed to mark document %s as ready: %w", documentID, err)
	}

	doc, err := m.registry.GetByID(documentID)
	if err != nil {
		return err
	}

	doc.ChunkCount = chunkCount
	doc.PageCount = pageCount
	doc.DocumentType = docType
	if err := m.registry.Update(doc); err != nil {
		return fmt.Errorf("failed to record processing result for document %s: %w", documentID, err)
	}

	m.logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"chunk_count": chunkCount,
		"page_count":  pageCount,
		"doc_type":    docType,
	}).Info("Document processing completed")

	return nil
}

// MarkFailed 将文档标记为处理失败
// 状态中只记录概括性消息，原始错误细节由调用方写入日志
func (m *StatusManager) MarkFailed(documentID string, category FailureCategory) error {
	if err := m.registry.UpdateStatus(documentID, models.DocStatusFailed, statusMessage(category)); err != nil {
		return fmt.Errorf("failed to mark document %s as failed: %w", documentID, err)
	}

	m.logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"category":    category,
	}).Warn("Document processing failed")

	return nil
}
