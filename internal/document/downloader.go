package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DownloadError 文档下载错误
// 区别于提取错误：内容尚未取到手
type DownloadError struct {
	URL        string // 下载地址
	StatusCode int    // HTTP状态码，非HTTP失败时为0
	Err        error  // 底层错误
}

// Error 实现error接口
func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download document from %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download document from %s: %v", e.URL, e.Err)
}

// Unwrap 返回底层错误
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// maxDownloadSize 单个文档的下载大小上限（50MB）
const maxDownloadSize = 50 * 1024 * 1024

// Downloader 文档下载器
// 支持HTTP(S)地址和本地文件路径两种来源
type Downloader struct {
	client *http.Client
}

// NewDownloader 创建新的文档下载器
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Download 下载文档内容
// 任何非2xx响应都视为下载失败
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	// 非HTTP来源按本地文件处理，服务于已上传到本地存储的文档
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		data, err := os.ReadFile(url)
		if err != nil {
			return nil, &DownloadError{URL: url, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	if len(data) > maxDownloadSize {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("document exceeds size limit of %d bytes", maxDownloadSize)}
	}

	return data, nil
}
