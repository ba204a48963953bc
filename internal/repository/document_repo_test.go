package repository

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRegistry 基于临时sqlite文件创建文档注册表
func newTestRegistry(t *testing.T) DocumentRegistry {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "registry.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "打开测试数据库失败")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Document{}), "迁移文档表失败")
	return NewDocumentRegistryWithDB(db)
}

// seedDocument 写入一条指定状态的文档
func seedDocument(t *testing.T, registry DocumentRegistry, id string, status models.DocumentStatus) {
	t.Helper()
	require.NoError(t, registry.Create(&models.Document{
		ID:      id,
		OwnerID: "alice",
		Status:  status,
	}))
}

func TestUpdateStatusTransitions(t *testing.T) {
	registry := newTestRegistry(t)
	seedDocument(t, registry, "doc-1", models.DocStatusPending)

	require.NoError(t, registry.UpdateStatus("doc-1", models.DocStatusProcessing, ""))
	require.NoError(t, registry.UpdateStatus("doc-1", models.DocStatusReady, ""))

	doc, err := registry.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusReady, doc.Status)
	assert.NotNil(t, doc.ProcessedAt, "处理完成后应记录完成时间")
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	registry := newTestRegistry(t)
	seedDocument(t, registry, "doc-1", models.DocStatusPending)

	err := registry.UpdateStatus("doc-1", models.DocStatusReady, "")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition), "pending不能直接转换为ready")

	doc, getErr := registry.GetByID("doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusPending, doc.Status, "非法转换不应改变状态")
}

func TestUpdateStatusMissingDocument(t *testing.T) {
	registry := newTestRegistry(t)

	err := registry.UpdateStatus("no-such-doc", models.DocStatusProcessing, "")
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))
}

func TestUpdateStatusConcurrentTransition(t *testing.T) {
	registry := newTestRegistry(t)
	seedDocument(t, registry, "doc-1", models.DocStatusPending)

	const workers = 8
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = registry.UpdateStatus("doc-1", models.DocStatusProcessing, "")
		}(i)
	}
	wg.Wait()

	// 并发的相同转换请求只有一个能生效，其余拿到非法转换错误
	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInvalidTransition):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "并发转换只应有一个成功")
	assert.Equal(t, workers-1, rejected)

	doc, err := registry.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusProcessing, doc.Status)
}
