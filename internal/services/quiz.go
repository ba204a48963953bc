package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// quizRetrievalQuery 出题时使用的固定检索语句，覆盖文档的核心内容
	quizRetrievalQuery = "key concepts, facts, and important information"
	// minQuizContextChunks 出题检索的分块数量下限
	minQuizContextChunks = 6
	// maxQuizQuestions 单次出题的题目数量上限
	maxQuizQuestions = 20
)

// QuizService 文档出题服务
// 基于文档内容生成多项选择题
type QuizService struct {
	documents *DocumentService   // 文档管理服务
	retriever *Retriever         // 语义检索器
	generator *llm.QuizGenerator // 题目生成器
	logger    *logrus.Logger     // 日志记录器
}

// NewQuizService 创建文档出题服务实例
func NewQuizService(
	documents *DocumentService,
	retriever *Retriever,
	generator *llm.QuizGenerator,
	logger *logrus.Logger,
) *QuizService {
	if logger == nil {
		logger = logrus.New()
	}
	return &QuizService{
		documents: documents,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Generate 基于指定文档生成多项选择题
// 题目数量越多检索的上下文越多，保证题目覆盖面；检索不到相关内容时返回空题目列表
func (s *QuizService) Generate(ctx context.Context, ownerID, documentID string, numQuestions int, difficulty string) (*llm.QuizResult, error) {
	if numQuestions <= 0 {
		return nil, fmt.Errorf("number of questions must be positive")
	}
	if numQuestions > maxQuizQuestions {
		return nil, fmt.Errorf("number of questions cannot exceed %d", maxQuizQuestions)
	}

	doc, err := s.documents.GetForOwner(ctx, documentID, ownerID)
	if err != nil {
		return nil, err
	}

	if doc.Status != models.DocStatusReady {
		return nil, ErrDocumentNotReady
	}

	limit := 2 * numQuestions
	if limit < minQuizContextChunks {
		limit = minQuizContextChunks
	}

	results, err := s.retriever.Retrieve(ctx, documentID, quizRetrievalQuery, limit)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Text
	}

	result, err := s.generator.Generate(ctx, contexts, numQuestions, difficulty)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"document_id":   documentID,
		"owner_id":      ownerID,
		"requested":     numQuestions,
		"generated":     len(result.Questions),
		"context_count": len(contexts),
	}).Info("Quiz generated")

	return result, nil
}
