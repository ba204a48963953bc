package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/embedding"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/sirupsen/logrus"
)

const (
	// defaultRetrievalK 默认检索的分块数量
	defaultRetrievalK = 4
	// defaultMinScore 默认相似度阈值，达到该值的结果才会保留
	defaultMinScore = 0.3
)

// Retriever 语义检索器
// 将查询文本向量化后在指定文档范围内做相似度检索
type Retriever struct {
	embedder embedding.Client    // 嵌入模型客户端
	vectorDB vectordb.Repository // 向量仓库
	logger   *logrus.Logger      // 日志记录器
	k        int                 // 检索数量
	minScore float32             // 相似度阈值
}

// RetrieverOption 检索器配置选项
type RetrieverOption func(*Retriever)

// WithRetrievalK 设置检索的分块数量
func WithRetrievalK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithMinScore 设置相似度阈值
func WithMinScore(score float32) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = score
	}
}

// NewRetriever 创建语义检索器实例
func NewRetriever(
	embedder embedding.Client,
	vectorDB vectordb.Repository,
	logger *logrus.Logger,
	opts ...RetrieverOption,
) *Retriever {
	if logger == nil {
		logger = logrus.New()
	}

	retriever := &Retriever{
		embedder: embedder,
		vectorDB: vectorDB,
		logger:   logger,
		k:        defaultRetrievalK,
		minScore: defaultMinScore,
	}

	for _, opt := range opts {
		opt(retriever)
	}

	return retriever
}

// Retrieve 在指定文档内检索与查询最相关的分块
// 结果按相似度降序排列，相似度低于阈值的分块被过滤掉；阈值判定为闭区间，恰好等于阈值的结果保留
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string, limit int) ([]vectordb.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = r.k
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.vectorDB.Search(ctx, vector, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	filtered := make([]vectordb.SearchResult, 0, len(results))
	for _, result := range results {
		if result.Score >= r.minScore {
			filtered = append(filtered, result)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"candidates":  len(results),
		"retained":    len(filtered),
		"min_score":   r.minScore,
	}).Debug("Retrieval completed")

	return filtered, nil
}
