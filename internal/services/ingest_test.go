package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fyerfyer/doc-quiz-system/internal/document"
	"github.com/fyerfyer/doc-quiz-system/internal/embedding"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ingestHarness 入库服务测试环境
type ingestHarness struct {
	service  *IngestService
	registry *fakeRegistry
	embedder *fakeEmbedder
	vectorDB vectordb.Repository
}

// newIngestHarness 搭建带内存向量仓库的入库服务
func newIngestHarness(t *testing.T, opts ...IngestOption) *ingestHarness {
	registry := newFakeRegistry()
	logger := testLogger()

	vectorDB, err := vectordb.NewMemoryRepository(vectordb.Config{Type: "memory", Dimension: 8})
	require.NoError(t, err, "创建内存向量仓库失败")

	splitter, err := document.NewTextSplitter(document.SplitterConfig{ChunkSize: 40, ChunkOverlap: 0})
	require.NoError(t, err, "创建文本分段器失败")

	embedder := newFakeEmbedder(8)
	extractor := document.NewExtractor(document.NewDownloader(5 * time.Second))
	status := NewStatusManager(registry, logger)

	service := NewIngestService(registry, status, extractor, splitter, embedder, vectorDB, logger, opts...)

	return &ingestHarness{
		service:  service,
		registry: registry,
		embedder: embedder,
		vectorDB: vectorDB,
	}
}

// seedDocument 写入一条文档记录
func (h *ingestHarness) seedDocument(t *testing.T, id, sourceURL string, status models.DocumentStatus) {
	err := h.registry.Create(&models.Document{
		ID:        id,
		OwnerID:   "user-1",
		FileName:  filepath.Base(sourceURL),
		SourceURL: sourceURL,
		Status:    status,
	})
	require.NoError(t, err, "写入文档记录失败")
}

// writeTempFile 写入临时文件并返回路径
func writeTempFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644), "写入临时文件失败")
	return path
}

// fiveParagraphs 五个独立段落，分块大小40时每段落为一个分块
const fiveParagraphs = "Paragraph one covers basics.\n\n" +
	"Paragraph two covers chunks.\n\n" +
	"Paragraph three covers stores.\n\n" +
	"Paragraph four covers queries.\n\n" +
	"Paragraph five covers answers."

func TestIngestProcessSuccess(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	result, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err, "处理文档失败")

	assert.Equal(t, models.DocStatusReady, result.Status, "处理后状态应为ready")
	assert.Equal(t, 5, result.ChunksCreated, "分块数量不正确")
	assert.Equal(t, "text", result.DocumentType, "文档类型不正确")

	doc, err := h.registry.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusReady, doc.Status, "文档状态未更新为ready")
	assert.Equal(t, 5, doc.ChunkCount, "文档分块数量未记录")
	assert.Empty(t, doc.Error, "成功处理不应记录错误信息")
	assert.NotNil(t, doc.ProcessedAt, "处理完成时间未记录")

	count, err := h.vectorDB.CountByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "向量仓库中的分块数量不正确")
}

func TestIngestProcessEmptyDocument(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "empty.txt", []byte("   \n  "))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	result, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err, "空文档应正常完成处理")

	assert.Equal(t, models.DocStatusReady, result.Status, "空文档处理后状态应为ready")
	assert.Equal(t, 0, result.ChunksCreated, "空文档不应产生分块")

	doc, err := h.registry.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusReady, doc.Status)
}

func TestIngestProcessDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	h := newIngestHarness(t)
	h.seedDocument(t, "doc-1", server.URL+"/missing.txt", models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.Error(t, err, "下载失败应返回错误")

	var downloadErr *document.DownloadError
	assert.True(t, errors.As(err, &downloadErr), "错误链中应包含下载错误")

	doc, getErr := h.registry.GetByID("doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, doc.Status, "下载失败后文档应为failed状态")
	assert.Equal(t, "failed to download the document", doc.Error, "状态中应记录概括性失败消息")
}

func TestIngestProcessExtractionFailure(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "blob.bin", []byte{0xff, 0xfe, 0xfd, 0x00})
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.Error(t, err, "无法识别的内容应提取失败")

	doc, getErr := h.registry.GetByID("doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, doc.Status)
	assert.Equal(t, "failed to extract text from the document", doc.Error, "状态中应记录提取失败消息")
}

func TestIngestProcessEmbeddingFailure(t *testing.T) {
	h := newIngestHarness(t)
	h.embedder.err = embedding.NewEmbeddingError(embedding.ErrCodeServerError, "embedding backend unavailable")
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.Error(t, err, "向量化失败应返回错误")

	doc, getErr := h.registry.GetByID("doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, doc.Status)
	assert.Equal(t, "failed to generate embeddings for the document", doc.Error, "状态中应记录向量化失败消息")

	count, countErr := h.vectorDB.CountByDocument(context.Background(), "doc-1")
	require.NoError(t, countErr)
	assert.Equal(t, 0, count, "失败的处理不应留下向量")
}

func TestIngestProcessBatching(t *testing.T) {
	h := newIngestHarness(t, WithEmbedBatchSize(2))
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	result, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, result.ChunksCreated)

	require.Len(t, h.embedder.batches, 3, "5个分块按批大小2应分3批")
	assert.Len(t, h.embedder.batches[0], 2)
	assert.Len(t, h.embedder.batches[1], 2)
	assert.Len(t, h.embedder.batches[2], 1)
}

func TestIngestReprocessIsIdempotent(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err, "首次处理失败")

	// ready状态的文档允许重新处理
	result, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err, "重新处理失败")
	assert.Equal(t, 5, result.ChunksCreated)

	count, err := h.vectorDB.CountByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "重新处理后向量数量不应翻倍")
}

func TestIngestFailedDocumentCanRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := newIngestHarness(t)
	h.seedDocument(t, "doc-1", server.URL+"/doc.txt", models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.Error(t, err)

	// 修复来源后failed状态的文档可以重新处理
	path := writeTempFile(t, "fixed.txt", []byte(fiveParagraphs))
	doc, err := h.registry.GetByID("doc-1")
	require.NoError(t, err)
	doc.SourceURL = path
	require.NoError(t, h.registry.Update(doc))

	result, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err, "失败的文档应支持重试")
	assert.Equal(t, models.DocStatusReady, result.Status)
}

func TestIngestRejectsDocumentInProcessing(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusProcessing)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.Error(t, err, "处理中的文档不应再次进入处理")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition), "应返回非法状态转换错误")

	assert.Empty(t, h.embedder.batches, "状态校验失败后不应触发向量化")
}

func TestIngestMissingDocument(t *testing.T) {
	h := newIngestHarness(t)

	_, err := h.service.Process(context.Background(), "no-such-doc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound), "不存在的文档应返回未找到错误")
}

func TestIngestCancelledContext(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.service.Process(ctx, "doc-1")
	require.Error(t, err, "已取消的上下文应中止处理")

	doc, getErr := h.registry.GetByID("doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, doc.Status, "中止的处理应标记为失败")
}

func TestIngestChunkTextsReachEmbedder(t *testing.T) {
	h := newIngestHarness(t)
	path := writeTempFile(t, "notes.txt", []byte(fiveParagraphs))
	h.seedDocument(t, "doc-1", path, models.DocStatusPending)

	_, err := h.service.Process(context.Background(), "doc-1")
	require.NoError(t, err)

	var all []string
	for _, batch := range h.embedder.batches {
		all = append(all, batch...)
	}
	require.Len(t, all, 5)
	for _, text := range all {
		assert.True(t, strings.Contains(fiveParagraphs, text), "送入向量化的文本应是原文片段")
	}
	assert.Equal(t, "Paragraph one covers basics.", all[0], "分块顺序应与原文一致")
}
