package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRegister(t *testing.T) {
	registry := newFakeRegistry()
	service := NewDocumentService(registry, &fakeVectorRepo{}, testLogger())

	doc, err := service.Register(context.Background(), RegisterRequest{
		OwnerID:   "alice",
		FileName:  "notes.pdf",
		SourceURL: "https://example.com/notes.pdf",
		Metadata:  map[string]interface{}{"course": "distributed systems"},
	})
	require.NoError(t, err, "登记文档失败")

	assert.NotEmpty(t, doc.ID, "应分配文档ID")
	assert.Equal(t, models.DocStatusPending, doc.Status, "新文档应为pending状态")

	stored, err := registry.GetByID(doc.ID)
	require.NoError(t, err)
	meta, err := stored.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, "distributed systems", meta["course"], "元数据应随文档保存")
}

func TestDocumentRegisterValidation(t *testing.T) {
	service := NewDocumentService(newFakeRegistry(), &fakeVectorRepo{}, testLogger())

	_, err := service.Register(context.Background(), RegisterRequest{SourceURL: "https://example.com/a.pdf"})
	assert.Error(t, err, "缺少所有者应返回错误")

	_, err = service.Register(context.Background(), RegisterRequest{OwnerID: "alice"})
	assert.Error(t, err, "缺少来源地址应返回错误")
}

func TestDocumentGetForOwner(t *testing.T) {
	registry := newFakeRegistry()
	service := NewDocumentService(registry, &fakeVectorRepo{}, testLogger())
	require.NoError(t, registry.Create(&models.Document{ID: "doc-1", OwnerID: "alice"}))

	t.Run("Owner", func(t *testing.T) {
		doc, err := service.GetForOwner(context.Background(), "doc-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
	})

	// 文档存在但归属他人与文档不存在是两种不同的错误
	t.Run("OtherOwner", func(t *testing.T) {
		_, err := service.GetForOwner(context.Background(), "doc-1", "bob")
		assert.True(t, errors.Is(err, models.ErrUnauthorized))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := service.GetForOwner(context.Background(), "no-such-doc", "alice")
		assert.True(t, errors.Is(err, models.ErrDocumentNotFound))
	})
}

func TestDocumentDelete(t *testing.T) {
	registry := newFakeRegistry()
	repo := &fakeVectorRepo{}
	service := NewDocumentService(registry, repo, testLogger())
	require.NoError(t, registry.Create(&models.Document{ID: "doc-1", OwnerID: "alice"}))

	require.NoError(t, service.Delete(context.Background(), "doc-1", "alice"))

	_, err := registry.GetByID("doc-1")
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound), "删除后文档记录应不存在")
	assert.Equal(t, []string{"doc-1"}, repo.deleted, "删除文档应同时清理其向量")
}

func TestDocumentDeleteUnauthorized(t *testing.T) {
	registry := newFakeRegistry()
	repo := &fakeVectorRepo{}
	service := NewDocumentService(registry, repo, testLogger())
	require.NoError(t, registry.Create(&models.Document{ID: "doc-1", OwnerID: "alice"}))

	err := service.Delete(context.Background(), "doc-1", "bob")
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	_, getErr := registry.GetByID("doc-1")
	assert.NoError(t, getErr, "未授权的删除不应移除文档")
	assert.Empty(t, repo.deleted, "未授权的删除不应清理向量")
}
