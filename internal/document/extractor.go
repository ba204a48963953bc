package document

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

// ExtractionError 文档内容提取错误
// 下载已成功，但内容无法识别或解析
type ExtractionError struct {
	Type DocumentType // 检测到的文档类型
	Err  error        // 底层错误
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract content (type=%s): %v", e.Type, e.Err)
}

// Unwrap 返回底层错误
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// pdfMagic PDF文件的魔数前缀
var pdfMagic = []byte("%PDF")

// Extractor 文档内容提取器
// 负责类型检测和按类型提取纯文本
type Extractor struct {
	downloader *Downloader
}

// NewExtractor 创建新的文档内容提取器
func NewExtractor(downloader *Downloader) *Extractor {
	return &Extractor{
		downloader: downloader,
	}
}

// DetectType 检测文档类型
// 检测顺序：URL扩展名 -> PDF魔数 -> UTF-8有效性，均不命中时为Unknown
func DetectType(sourceURL string, data []byte) DocumentType {
	if ext := urlExtension(sourceURL); ext != "" {
		switch ext {
		case ".pdf":
			return PDF
		case ".txt", ".md", ".markdown", ".text":
			return Text
		}
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return PDF
	}

	if utf8.Valid(data) {
		return Text
	}

	return Unknown
}

// FetchAndExtract 下载文档并提取其纯文本内容
func (e *Extractor) FetchAndExtract(ctx context.Context, sourceURL string) (*ExtractedContent, error) {
	data, err := e.downloader.Download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return e.Extract(sourceURL, data)
}

// Extract 从原始字节中提取纯文本内容
// 未知类型直接报提取错误，不做猜测性解析
func (e *Extractor) Extract(sourceURL string, data []byte) (*ExtractedContent, error) {
	docType := DetectType(sourceURL, data)

	switch docType {
	case PDF:
		text, pageCount, err := extractPDF(data)
		if err != nil {
			return nil, &ExtractionError{Type: PDF, Err: err}
		}
		return &ExtractedContent{Text: text, Type: PDF, PageCount: pageCount}, nil

	case Text:
		text, err := extractText(sourceURL, data)
		if err != nil {
			return nil, &ExtractionError{Type: Text, Err: err}
		}
		return &ExtractedContent{Text: text, Type: Text}, nil

	default:
		return nil, &ExtractionError{
			Type: Unknown,
			Err:  fmt.Errorf("unsupported document type"),
		}
	}
}

// urlExtension 从URL中提取小写的文件扩展名
// 解析失败时退化为直接取路径后缀
func urlExtension(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return strings.ToLower(path.Ext(sourceURL))
	}
	return strings.ToLower(path.Ext(parsed.Path))
}
