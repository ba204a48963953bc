package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage 本地文件系统存储实现
// 文件按所有者分目录存放，存储键就是基础目录下的相对路径
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	path := cfg.Path
	if path == "" {
		path = "data/uploads"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// Save 保存文件到本地存储
func (s *LocalStorage) Save(ctx context.Context, ownerID, filename string, reader io.Reader, size int64) (*StoredFile, error) {
	key := buildKey(ownerID, filename)

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create owner directory: %v", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %v", err)
	}

	return &StoredFile{
		Key:         key,
		Name:        filename,
		Size:        written,
		ContentType: contentTypeFor(filename),
	}, nil
}

// Open 打开指定键的文件
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found", key)
		}
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	return file, nil
}

// Delete 删除指定键的文件
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s not found", key)
		}
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

// URL 返回文件的绝对路径，入库下载器按本地文件读取
func (s *LocalStorage) URL(ctx context.Context, key string) (string, error) {
	return s.resolve(key)
}

// resolve 将存储键解析为基础目录下的绝对路径
// 拒绝越出基础目录的键
func (s *LocalStorage) resolve(key string) (string, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return path, nil
}

// buildKey 生成所有者目录下的唯一存储键
func buildKey(ownerID, filename string) string {
	owner := ownerID
	if owner == "" {
		owner = "anonymous"
	}
	return owner + "/" + uuid.New().String() + strings.ToLower(filepath.Ext(filename))
}
