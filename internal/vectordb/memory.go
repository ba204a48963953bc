package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository 内存向量仓库实现
// 用于开发和测试环境的简单内存存储
type MemoryRepository struct {
	mu        sync.RWMutex         // 读写锁，确保并发安全
	dimension int                  // 向量维度
	records   map[string]memRecord // 存储ID到记录的映射
	docToIDs  map[string][]string  // 文档ID到存储ID的映射
}

// memRecord 内存中的单条分块记录
type memRecord struct {
	id         string
	documentID string
	chunkIndex int
	text       string
	vector     []float32
	payload    map[string]interface{}
}

// NewMemoryRepository 创建内存向量仓库
func NewMemoryRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	return &MemoryRepository{
		dimension: config.Dimension,
		records:   make(map[string]memRecord),
		docToIDs:  make(map[string][]string),
	}, nil
}

// Init 初始化底层存储
// 内存实现无需初始化
func (r *MemoryRepository) Init(ctx context.Context) error {
	return nil
}

// Insert 批量插入分块向量
func (r *MemoryRepository) Insert(ctx context.Context, req *InsertRequest) ([]string, error) {
	if err := req.Validate(r.dimension); err != nil {
		return nil, err
	}
	if len(req.Chunks) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(req.Chunks))
	for i, chunk := range req.Chunks {
		id := uuid.NewString()
		vector := make([]float32, len(req.Vectors[i]))
		copy(vector, req.Vectors[i])

		r.records[id] = memRecord{
			id:         id,
			documentID: req.DocumentID,
			chunkIndex: chunk.Index,
			text:       chunk.Text,
			vector:     vector,
			payload:    req.payloadFor(i),
		}
		r.docToIDs[req.DocumentID] = append(r.docToIDs[req.DocumentID], id)
		ids[i] = id
	}

	return ids, nil
}

// Search 在指定文档范围内做相似度搜索
// 只访问目标文档的分块，其他文档的内容不参与计算
func (r *MemoryRepository) Search(ctx context.Context, vector []float32, documentID string, limit int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if len(vector) != r.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, r.dimension, len(vector))
	}
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required for search")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.docToIDs[documentID]
	results := make([]SearchResult, 0, len(ids))

	for _, id := range ids {
		rec, exists := r.records[id]
		if !exists {
			continue
		}

		score, err := CosineSimilarity(vector, rec.vector)
		if err != nil {
			return nil, err
		}

		results = append(results, SearchResult{
			ID:         rec.id,
			DocumentID: rec.documentID,
			Text:       rec.text,
			ChunkIndex: rec.chunkIndex,
			Score:      score,
			Metadata:   rec.payload,
		})
	}

	sortResultsByScore(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// DeleteByDocument 删除指定文档的所有分块
func (r *MemoryRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, exists := r.docToIDs[documentID]
	if !exists {
		return 0, nil
	}

	for _, id := range ids {
		delete(r.records, id)
	}
	delete(r.docToIDs, documentID)

	return len(ids), nil
}

// CountByDocument 统计指定文档的分块数量
func (r *MemoryRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.docToIDs[documentID]), nil
}

// Dimension 返回向量维度
func (r *MemoryRepository) Dimension() int {
	return r.dimension
}

// Close 关闭底层连接
// 内存实现是空操作
func (r *MemoryRepository) Close() error {
	return nil
}

// 在包初始化时注册内存仓库
func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
