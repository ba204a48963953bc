package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fyerfyer/doc-quiz-system/internal/cache"
	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/sirupsen/logrus"
)

// defaultAnswerCacheTTL 问答结果的默认缓存时长
const defaultAnswerCacheTTL = time.Hour

// AnswerService 文档问答服务
// 在归属校验通过且文档就绪后，执行检索增强的问答流程
type AnswerService struct {
	documents *DocumentService     // 文档管理服务
	retriever *Retriever           // 语义检索器
	generator *llm.AnswerGenerator // 回答生成器
	cache     cache.Cache          // 结果缓存
	logger    *logrus.Logger       // 日志记录器
	cacheTTL  time.Duration        // 缓存时长
}

// AnswerServiceOption 问答服务配置选项
type AnswerServiceOption func(*AnswerService)

// WithAnswerCacheTTL 设置问答结果的缓存时长
func WithAnswerCacheTTL(ttl time.Duration) AnswerServiceOption {
	return func(s *AnswerService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewAnswerService 创建文档问答服务实例
func NewAnswerService(
	documents *DocumentService,
	retriever *Retriever,
	generator *llm.AnswerGenerator,
	answerCache cache.Cache,
	logger *logrus.Logger,
	opts ...AnswerServiceOption,
) *AnswerService {
	if logger == nil {
		logger = logrus.New()
	}

	service := &AnswerService{
		documents: documents,
		retriever: retriever,
		generator: generator,
		cache:     answerCache,
		logger:    logger,
		cacheTTL:  defaultAnswerCacheTTL,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Ask 基于指定文档回答问题
// 先校验文档归属和就绪状态，再走缓存、检索、生成的流程
func (s *AnswerService) Ask(ctx context.Context, ownerID, documentID, question string) (*llm.AnswerResult, error) {
	doc, err := s.documents.GetForOwner(ctx, documentID, ownerID)
	if err != nil {
		return nil, err
	}

	if doc.Status != models.DocStatusReady {
		return nil, ErrDocumentNotReady
	}

	// 缓存命中直接返回
	cacheKey := cache.AnswerKey(ownerID, documentID, question)
	if s.cache != nil {
		if cached, found, err := s.cache.Get(cacheKey); err == nil && found {
			var result llm.AnswerResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				s.logger.WithFields(logrus.Fields{
					"document_id": documentID,
					"owner_id":    ownerID,
				}).Debug("Answer served from cache")
				return &result, nil
			}
		}
	}

	results, err := s.retriever.Retrieve(ctx, documentID, question, 0)
	if err != nil {
		return nil, err
	}

	sources := make([]llm.Source, len(results))
	for i, r := range results {
		sources[i] = llm.Source{Content: r.Text, Metadata: r.Metadata}
	}

	answer, err := s.generator.Answer(ctx, question, sources)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(answer); err == nil {
			if err := s.cache.Set(cacheKey, string(data), s.cacheTTL); err != nil {
				s.logger.WithError(err).Warn("Failed to cache answer")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"document_id":   documentID,
		"owner_id":      ownerID,
		"context_count": len(sources),
	}).Info("Question answered")

	return answer, nil
}
