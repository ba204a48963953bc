package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// 常用错误定义
var (
	// ErrDimensionMismatch 向量维度或数量与预期不符
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyVector 向量为空
	ErrEmptyVector = errors.New("empty vector")
	// ErrInvalidRequest 插入请求不完整
	ErrInvalidRequest = errors.New("invalid insert request")
)

// 元数据保留键
// 插入时强制写入，调用方提供的同名键会被覆盖
const (
	MetaKeyDocumentID = "document_id" // 所属文档ID
	MetaKeyOwnerID    = "owner_id"    // 文档所有者ID
	MetaKeyChunkIndex = "chunk_index" // 分块在文档内的序号
	MetaKeyText       = "text"        // 分块原文
)

// ChunkVector 待入库的分块
type ChunkVector struct {
	Text  string // 分块文本
	Index int    // 分块在文档内的序号
}

// InsertRequest 批量插入请求
// 分块与向量按下标一一对应
type InsertRequest struct {
	DocumentID string                 // 所属文档ID
	OwnerID    string                 // 文档所有者ID
	Chunks     []ChunkVector          // 分块列表
	Vectors    [][]float32            // 对应的向量列表
	Metadata   map[string]interface{} // 附加到每个分块的元数据
}

// Validate 校验插入请求
func (r *InsertRequest) Validate(dimension int) error {
	if r.DocumentID == "" {
		return fmt.Errorf("%w: document ID is required", ErrInvalidRequest)
	}
	if r.OwnerID == "" {
		return fmt.Errorf("%w: owner ID is required", ErrInvalidRequest)
	}
	if len(r.Chunks) != len(r.Vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors",
			ErrDimensionMismatch, len(r.Chunks), len(r.Vectors))
	}
	for i, vec := range r.Vectors {
		if len(vec) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrEmptyVector, i)
		}
		if dimension > 0 && len(vec) != dimension {
			return fmt.Errorf("%w: expected %d, got %d at index %d",
				ErrDimensionMismatch, dimension, len(vec), i)
		}
	}
	return nil
}

// payloadFor 构造第i个分块的完整元数据
// 保留键强制写入，覆盖调用方提供的同名值
func (r *InsertRequest) payloadFor(i int) map[string]interface{} {
	payload := make(map[string]interface{}, len(r.Metadata)+4)
	for k, v := range r.Metadata {
		payload[k] = v
	}
	payload[MetaKeyDocumentID] = r.DocumentID
	payload[MetaKeyOwnerID] = r.OwnerID
	payload[MetaKeyChunkIndex] = r.Chunks[i].Index
	payload[MetaKeyText] = r.Chunks[i].Text
	return payload
}

// SearchResult 相似度搜索结果
type SearchResult struct {
	ID         string                 // 分块的存储ID
	DocumentID string                 // 所属文档ID
	Text       string                 // 分块文本
	ChunkIndex int                    // 分块序号
	Score      float32                // 余弦相似度得分
	Metadata   map[string]interface{} // 元数据
}

// Repository 向量仓库接口
// 所有搜索和删除都以文档为作用域
type Repository interface {
	// Init 初始化底层存储（建库建集合等）
	Init(ctx context.Context) error

	// Insert 批量插入分块向量，返回生成的存储ID，与分块顺序一致
	Insert(ctx context.Context, req *InsertRequest) ([]string, error)

	// Search 在指定文档范围内做相似度搜索
	Search(ctx context.Context, vector []float32, documentID string, limit int) ([]SearchResult, error)

	// DeleteByDocument 删除指定文档的所有分块，返回删除前的分块数量
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// CountByDocument 统计指定文档的分块数量
	CountByDocument(ctx context.Context, documentID string) (int, error)

	// Dimension 返回向量维度
	Dimension() int

	// Close 关闭底层连接
	Close() error
}

// Config 向量仓库配置
type Config struct {
	Type       string // 仓库类型，如 "memory", "qdrant"
	Addr       string // 服务器地址（远程实现使用）
	Collection string // 集合名称
	Dimension  int    // 向量维度
}

// Factory 向量仓库工厂函数类型
type Factory func(config Config) (Repository, error)

// repositoryRegistry 注册可用的向量仓库实现
var repositoryRegistry = map[string]Factory{}

// RegisterRepository 注册向量仓库工厂函数
func RegisterRepository(name string, factory Factory) {
	repositoryRegistry[name] = factory
}

// NewRepository 根据配置创建向量仓库实例
func NewRepository(config Config) (Repository, error) {
	factory, ok := repositoryRegistry[config.Type]
	if !ok {
		// 默认使用内存实现
		factory = NewMemoryRepository
	}
	return factory(config)
}

// CosineSimilarity 计算两个向量的余弦相似度
func CosineSimilarity(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v1), len(v2))
	}

	var dot float32
	for i := 0; i < len(v1); i++ {
		dot += v1[i] * v2[i]
	}

	norm1 := vectorNorm(v1)
	norm2 := vectorNorm(v2)
	if norm1 == 0 || norm2 == 0 {
		return 0, nil
	}

	similarity := dot / (norm1 * norm2)
	// 处理浮点精度问题
	if similarity > 1.0 {
		similarity = 1.0
	}
	if similarity < -1.0 {
		similarity = -1.0
	}
	return similarity, nil
}

// vectorNorm 计算向量的L2范数
func vectorNorm(v []float32) float32 {
	var sum float32
	for _, val := range v {
		sum += val * val
	}
	return float32(math.Sqrt(float64(sum)))
}

// sortResultsByScore 按得分降序排序搜索结果
func sortResultsByScore(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
