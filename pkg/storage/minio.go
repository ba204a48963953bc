package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignedURLExpiry 预签名下载地址的有效期
// 文档上传后很快进入处理流程，地址不需要长期有效
const presignedURLExpiry = time.Hour

// MinioStorage MinIO对象存储实现
// 存储键即对象名，下载地址为预签名URL
type MinioStorage struct {
	client *minio.Client // MinIO客户端
	bucket string        // 存储桶名称
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// NewMinioStorage 创建MinIO存储实例，存储桶不存在时自动创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Save 上传文件到MinIO
func (s *MinioStorage) Save(ctx context.Context, ownerID, filename string, reader io.Reader, size int64) (*StoredFile, error) {
	key := buildKey(ownerID, filename)
	contentType := contentTypeFor(filename)

	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %v", err)
	}

	return &StoredFile{
		Key:         key,
		Name:        filename,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Open 获取MinIO中的对象内容
func (s *MinioStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %v", key, err)
	}
	return obj, nil
}

// Delete 删除MinIO中的对象
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %v", key, err)
	}
	return nil
}

// URL 生成对象的预签名下载地址
func (s *MinioStorage) URL(ctx context.Context, key string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignedURLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %v", key, err)
	}
	return presigned.String(), nil
}
