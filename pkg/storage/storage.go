package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// StoredFile 已保存文件的元数据
type StoredFile struct {
	Key         string // 存储键，后续访问和删除都用它
	Name        string // 原始文件名
	Size        int64  // 文件大小（字节）
	ContentType string // MIME类型
}

// Storage 上传文件存储接口
// 文档先落到存储，再以可下载的地址交给入库流程处理
type Storage interface {
	// Save 保存文件并返回元数据，size未知时传-1
	Save(ctx context.Context, ownerID, filename string, reader io.Reader, size int64) (*StoredFile, error)

	// Open 打开指定键的文件内容
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除指定键的文件
	Delete(ctx context.Context, key string) error

	// URL 返回入库下载器可以直接读取的文件地址
	URL(ctx context.Context, key string) (string, error)
}

// Config 存储配置
type Config struct {
	Type  string      // 存储类型: "local", "minio"
	Local LocalConfig // 本地存储配置
	Minio MinioConfig // MinIO存储配置
}

// NewStorage 根据配置创建存储实例
func NewStorage(cfg Config) (Storage, error) {
	if cfg.Type == "minio" {
		return NewMinioStorage(cfg.Minio)
	}
	return NewLocalStorage(cfg.Local)
}

// contentTypeFor 根据文件扩展名判断MIME类型
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
