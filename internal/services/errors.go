package services

import (
	"errors"
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/document"
	"github.com/fyerfyer/doc-quiz-system/internal/embedding"
	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
)

// FailureCategory 处理失败的分类
// 入库失败时记录到文档状态，对外只暴露分类和概括性消息
type FailureCategory string

const (
	// FailureDownload 文档下载失败
	FailureDownload FailureCategory = "download_failure"
	// FailureExtraction 内容提取失败
	FailureExtraction FailureCategory = "extraction_failure"
	// FailureEmbedding 向量化失败
	FailureEmbedding FailureCategory = "embedding_failure"
	// FailureVectorStore 向量存储失败
	FailureVectorStore FailureCategory = "vector_store_failure"
	// FailureGeneration 内容生成失败
	FailureGeneration FailureCategory = "generation_failure"
	// FailureUnexpected 未预期的失败
	FailureUnexpected FailureCategory = "unexpected_failure"
)

// ErrDocumentNotReady 文档尚未处理完成错误
var ErrDocumentNotReady = errors.New("document is not ready for querying")

// Categorize 将底层错误归入失败分类
// 未识别的错误一律归为未预期失败
func Categorize(err error) FailureCategory {
	var downloadErr *document.DownloadError
	if errors.As(err, &downloadErr) {
		return FailureDownload
	}

	var extractionErr *document.ExtractionError
	if errors.As(err, &extractionErr) {
		return FailureExtraction
	}

	var embErr embedding.EmbeddingError
	if errors.As(err, &embErr) {
		return FailureEmbedding
	}

	if errors.Is(err, vectordb.ErrDimensionMismatch) ||
		errors.Is(err, vectordb.ErrEmptyVector) ||
		errors.Is(err, vectordb.ErrInvalidRequest) {
		return FailureVectorStore
	}

	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return FailureGeneration
	}

	return FailureUnexpected
}

// statusMessage 构造写入文档状态的概括性失败消息
// 原始错误细节只进日志，不进状态
func statusMessage(category FailureCategory) string {
	switch category {
	case FailureDownload:
		return "failed to download the document"
	case FailureExtraction:
		return "failed to extract text from the document"
	case FailureEmbedding:
		return "failed to generate embeddings for the document"
	case FailureVectorStore:
		return "failed to store document vectors"
	default:
		return "document processing failed unexpectedly"
	}
}

// processingError 带失败分类的处理错误
type processingError struct {
	category FailureCategory
	err      error
}

// Error 实现error接口
func (e *processingError) Error() string {
	return fmt.Sprintf("%s: %v", e.category, e.err)
}

// Unwrap 返回底层错误
func (e *processingError) Unwrap() error {
	return e.err
}
