package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/document"
	"github.com/fyerfyer/doc-quiz-system/internal/embedding"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/repository"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// defaultEmbedBatchSize 每批送入嵌入模型的分块数量
const defaultEmbedBatchSize = 16

// IngestService 文档入库服务
// 串联下载、提取、分块、向量化和入库的完整处理流程
type IngestService struct {
	registry  repository.DocumentRegistry // 文档注册表
	status    *StatusManager              // 状态管理器
	extractor *document.Extractor         // 内容提取器
	splitter  document.Splitter           // 文本分段器
	embedder  embedding.Client            // 嵌入模型客户端
	vectorDB  vectordb.Repository         // 向量仓库
	logger    *logrus.Logger              // 日志记录器
	batchSize int                         // 向量化批处理大小
}

// IngestOption 入库服务配置选项
type IngestOption func(*IngestService)

// WithEmbedBatchSize 设置向量化批处理大小
func WithEmbedBatchSize(size int) IngestOption {
	return func(s *IngestService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewIngestService 创建文档入库服务实例
func NewIngestService(
	registry repository.DocumentRegistry,
	status *StatusManager,
	extractor *document.Extractor,
	splitter document.Splitter,
	embedder embedding.Client,
	vectorDB vectordb.Repository,
	logger *logrus.Logger,
	opts ...IngestOption,
) *IngestService {
	if logger == nil {
		logger = logrus.New()
	}

	service := &IngestService{
		registry:  registry,
		status:    status,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		vectorDB:  vectorDB,
		logger:    logger,
		batchSize: defaultEmbedBatchSize,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// ProcessResult 文档处理结果
type ProcessResult struct {
	DocumentID    string                // 文档ID
	Status        models.DocumentStatus // 处理后的状态
	ChunksCreated int                   // 入库的分块数量
	PageCount     int                   // 页数（PDF文档）
	DocumentType  string                // 检测到的文档类型
}

// Process 执行文档的完整处理流程
// 失败时文档被标记为失败状态并返回错误，重复调用会先清理旧向量再重新入库
func (s *IngestService) Process(ctx context.Context, documentID string) (result *ProcessResult, err error) {
	doc, err := s.registry.GetByID(documentID)
	if err != nil {
		return nil, err
	}

	if err := s.status.MarkProcessing(documentID); err != nil {
		return nil, err
	}

	// 未预期的panic同样按失败记录并向调用方传播
	defer func() {
		if r := recover(); r != nil {
			err = &processingError{
				category: FailureUnexpected,
				err:      fmt.Errorf("panic during document processing: %v", r),
			}
			s.recordFailure(documentID, err)
		}
	}()

	result, err = s.run(ctx, doc)
	if err != nil {
		s.recordFailure(documentID, err)
		return nil, err
	}

	if err := s.status.MarkReady(documentID, result.ChunksCreated, result.PageCount, result.DocumentType); err != nil {
		return nil, err
	}
	result.Status = models.DocStatusReady

	return result, nil
}

// run 执行处理流程的各个阶段
// 每个阶段的错误都带上失败分类返回
func (s *IngestService) run(ctx context.Context, doc *models.Document) (*ProcessResult, error) {
	// 1. 下载并提取文本
	content, err := s.extractor.FetchAndExtract(ctx, doc.SourceURL)
	if err != nil {
		return nil, &processingError{category: Categorize(err), err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"doc_type":    content.Type,
		"page_count":  content.PageCount,
		"text_length": len(content.Text),
	}).Debug("Document content extracted")

	// 2. 文本分块
	chunks, err := s.splitter.Split(content.Text)
	if err != nil {
		return nil, &processingError{category: FailureUnexpected, err: err}
	}

	// 3. 清理该文档的旧向量，保证重复处理的幂等性
	if _, err := s.vectorDB.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, &processingError{category: FailureVectorStore, err: err}
	}

	result := &ProcessResult{
		DocumentID:   doc.ID,
		PageCount:    content.PageCount,
		DocumentType: string(content.Type),
	}

	// 无可提取内容的文档正常完成，分块数为0
	if len(chunks) == 0 {
		return result, nil
	}

	// 4. 分批向量化并入库
	metadata, err := doc.GetMetadata()
	if err != nil {
		return nil, &processingError{category: FailureUnexpected, err: err}
	}
	metadata["file_name"] = doc.FileName

	inserted, err := s.embedAndStore(ctx, doc, chunks, metadata)
	if err != nil {
		return nil, err
	}

	result.ChunksCreated = inserted
	return result, nil
}

// embedAndStore 分批向量化分块并写入向量仓库
// 每批处理前检查上下文取消，避免长文档阻塞关停
func (s *IngestService) embedAndStore(
	ctx context.Context,
	doc *models.Document,
	chunks []document.Chunk,
	metadata map[string]interface{},
) (int, error) {
	inserted := 0

	for start := 0; start < len(chunks); start += s.batchSize {
		select {
		case <-ctx.Done():
			return inserted, &processingError{category: FailureUnexpected, err: ctx.Err()}
		default:
		}

		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return inserted, &processingError{category: Categorize(err), err: err}
		}

		chunkVectors := make([]vectordb.ChunkVector, len(batch))
		for i, chunk := range batch {
			chunkVectors[i] = vectordb.ChunkVector{Text: chunk.Text, Index: chunk.Index}
		}

		ids, err := s.vectorDB.Insert(ctx, &vectordb.InsertRequest{
			DocumentID: doc.ID,
			OwnerID:    doc.OwnerID,
			Chunks:     chunkVectors,
			Vectors:    vectors,
			Metadata:   metadata,
		})
		if err != nil {
			return inserted, &processingError{category: Categorize(err), err: err}
		}
		inserted += len(ids)
	}

	return inserted, nil
}

// recordFailure 记录处理失败
// 概括性消息进状态，原始错误进日志
func (s *IngestService) recordFailure(documentID string, err error) {
	category := FailureUnexpected
	var pe *processingError
	if errors.As(err, &pe) {
		category = pe.category
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"category":    category,
	}).WithError(err).Error("Document processing failed")

	if markErr := s.status.MarkFailed(documentID, category); markErr != nil {
		s.logger.WithField("document_id", documentID).
			WithError(markErr).Error("Failed to record document failure status")
	}
}
