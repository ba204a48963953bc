package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveThresholdBoundary(t *testing.T) {
	repo := &fakeVectorRepo{
		results: []vectordb.SearchResult{
			{ID: "a", DocumentID: "doc-1", Text: "highly relevant", Score: 0.95},
			{ID: "b", DocumentID: "doc-1", Text: "exactly at threshold", Score: 0.30},
			{ID: "c", DocumentID: "doc-1", Text: "just below threshold", Score: 0.29},
		},
	}
	retriever := NewRetriever(newFakeEmbedder(8), repo, testLogger())

	results, err := retriever.Retrieve(context.Background(), "doc-1", "what is relevant", 0)
	require.NoError(t, err, "检索失败")

	// 阈值判定为闭区间：0.30保留，0.29过滤
	require.Len(t, results, 2, "恰好等于阈值的结果应保留")
	assert.Equal(t, "highly relevant", results[0].Text)
	assert.Equal(t, "exactly at threshold", results[1].Text)
	assert.InDelta(t, 0.30, float64(results[1].Score), 1e-6)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	retriever := NewRetriever(newFakeEmbedder(8), &fakeVectorRepo{}, testLogger())

	_, err := retriever.Retrieve(context.Background(), "doc-1", "", 0)
	assert.Error(t, err, "空查询应返回错误")
}

func TestRetrieveDefaultLimit(t *testing.T) {
	repo := &fakeVectorRepo{}
	retriever := NewRetriever(newFakeEmbedder(8), repo, testLogger())

	_, err := retriever.Retrieve(context.Background(), "doc-1", "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, repo.lastLimit, "未指定数量时应使用默认检索数量")
	assert.Equal(t, "doc-1", repo.lastDocID, "检索应限定在指定文档内")
}

func TestRetrieveExplicitLimit(t *testing.T) {
	repo := &fakeVectorRepo{}
	retriever := NewRetriever(newFakeEmbedder(8), repo, testLogger())

	_, err := retriever.Retrieve(context.Background(), "doc-1", "anything", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit, "指定数量时应按指定值检索")
}

func TestRetrieveCustomMinScore(t *testing.T) {
	repo := &fakeVectorRepo{
		results: []vectordb.SearchResult{
			{ID: "a", Text: "kept", Score: 0.55},
			{ID: "b", Text: "dropped", Score: 0.45},
		},
	}
	retriever := NewRetriever(newFakeEmbedder(8), repo, testLogger(), WithMinScore(0.5))

	results, err := retriever.Retrieve(context.Background(), "doc-1", "anything", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Text)
}

func TestRetrieveEmbedFailure(t *testing.T) {
	embedder := newFakeEmbedder(8)
	embedder.err = errors.New("embedding backend down")
	retriever := NewRetriever(embedder, &fakeVectorRepo{}, testLogger())

	_, err := retriever.Retrieve(context.Background(), "doc-1", "anything", 0)
	assert.Error(t, err, "向量化失败应向上传播")
}

func TestRetrieveSearchFailure(t *testing.T) {
	repo := &fakeVectorRepo{searchErr: errors.New("store unavailable")}
	retriever := NewRetriever(newFakeEmbedder(8), repo, testLogger())

	_, err := retriever.Retrieve(context.Background(), "doc-1", "anything", 0)
	assert.Error(t, err, "检索失败应向上传播")
}
