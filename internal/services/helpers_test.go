package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// testLogger 创建丢弃输出的测试日志器
func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeRegistry 内存版文档注册表，行为与数据库实现保持一致
type fakeRegistry struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: make(map[string]*models.Document)}
}

func (r *fakeRegistry) Create(doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Status == "" {
		doc.Status = models.DocStatusPending
	}
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeRegistry) Update(doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return models.ErrDocumentNotFound
	}
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeRegistry) GetByID(id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRegistry) List(ownerID string, offset, limit int) ([]*models.Document, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []*models.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	return docs, int64(len(docs)), nil
}

func (r *fakeRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return models.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeRegistry) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrDocumentNotFound
	}
	if !models.CanTransition(doc.Status, status) {
		return models.ErrInvalidTransition
	}
	doc.Status = status
	doc.Error = errorMsg
	doc.UpdatedAt = time.Now()
	if status == models.DocStatusReady {
		now := time.Now()
		doc.ProcessedAt = &now
	}
	return nil
}

func (r *fakeRegistry) UpdateChunkCount(id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return models.ErrDocumentNotFound
	}
	doc.ChunkCount = count
	return nil
}

// fakeEmbedder 确定性向量的嵌入客户端，记录每次收到的输入
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	err     error
	batches [][]string
	queries []string
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim}
}

// vectorFor 由文本内容确定性地生成向量，相同文本得到相同向量
func (f *fakeEmbedder) vectorFor(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(digest[i%len(digest)])/255.0 + 0.01
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vectorFor(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

func (f *fakeEmbedder) Dimensions() int { return f.dim }

// fakeVectorRepo 返回预置检索结果的向量仓库，记录最近一次检索参数
type fakeVectorRepo struct {
	results   []vectordb.SearchResult
	searchErr error
	lastDocID string
	lastLimit int
	inserted  []*vectordb.InsertRequest
	deleted   []string
}

func (f *fakeVectorRepo) Init(ctx context.Context) error { return nil }

func (f *fakeVectorRepo) Insert(ctx context.Context, req *vectordb.InsertRequest) ([]string, error) {
	f.inserted = append(f.inserted, req)
	ids := make([]string, len(req.Chunks))
	for i := range ids {
		ids[i] = fmt.Sprintf("rec-%d", len(f.inserted)*100+i)
	}
	return ids, nil
}

func (f *fakeVectorRepo) Search(ctx context.Context, vector []float32, documentID string, limit int) ([]vectordb.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.lastDocID = documentID
	f.lastLimit = limit
	return f.results, nil
}

func (f *fakeVectorRepo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	f.deleted = append(f.deleted, documentID)
	return 0, nil
}

func (f *fakeVectorRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	return 0, nil
}

func (f *fakeVectorRepo) Dimension() int { return 8 }

func (f *fakeVectorRepo) Close() error { return nil }

// stubLLM 返回固定文本的大模型客户端，记录调用次数和提示词
type stubLLM struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.CallOption) (*llm.Response, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.response, ModelName: s.Name()}, nil
}

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message, options ...llm.CallOption) (*llm.Response, error) {
	s.calls++
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.response, ModelName: s.Name()}, nil
}

func (s *stubLLM) Name() string { return "stub-llm" }
