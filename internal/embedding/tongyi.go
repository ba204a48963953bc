package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// 默认API端点
	defaultDashScopeEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/embeddings/text-embedding/text-embedding"

	// 默认模型
	defaultModel = "text-embedding-v3"
)

// TongyiClient 实现通义千问嵌入API客户端
type TongyiClient struct {
	apiKey     string       // API密钥
	endpoint   string       // API端点
	model      string       // 模型名称
	httpClient *http.Client // HTTP客户端
	maxRetries int          // 最大重试次数
	dimensions int          // 向量维度
	batchSize  int          // 单次请求的最大文本数
}

// NewTongyiClient 创建新的通义千问嵌入客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultDashScopeEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768
	}
	if !isValidDimension(dimensions) {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest,
			fmt.Sprintf("invalid dimension: %d", dimensions))
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	return &TongyiClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		dimensions: dimensions,
		batchSize:  batchSize,
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *TongyiClient) Dimensions() int {
	return c.dimensions
}

// Embed 生成单条文本的向量表示
func (c *TongyiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, NewEmbeddingError(ErrCodeBadResponse, "no embedding vectors returned")
	}
	return vectors[0], nil
}

// EmbedBatch 批量生成文本的向量表示
// 超出单次请求上限的输入按batchSize切分为多次请求，结果保持输入顺序
func (c *TongyiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vectors...)
	}

	return result, nil
}

// embedBatch 处理单次请求范围内的一批文本
func (c *TongyiClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqData := dashScopeRequest{
		Model: c.model,
		Input: dashScopeInput{Texts: texts},
		Parameters: &dashScopeParameters{
			Dimension:  c.dimensions,
			OutputType: "dense",
		},
	}

	var resp dashScopeResponse
	if err := c.sendRequest(ctx, reqData, &resp); err != nil {
		return nil, err
	}

	if resp.Code != "" {
		return nil, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", resp.Message, resp.Code))
	}

	// 按输入顺序重组结果，任何缺失的向量都视为失败
	result := make([][]float32, len(texts))
	for _, emb := range resp.Output.Embeddings {
		if emb.TextIndex < 0 || emb.TextIndex >= len(texts) {
			return nil, NewEmbeddingError(ErrCodeBadResponse,
				fmt.Sprintf("embedding text_index out of range: %d", emb.TextIndex))
		}
		result[emb.TextIndex] = emb.Embedding
	}
	for i, vec := range result {
		if vec == nil {
			return nil, NewEmbeddingError(ErrCodeBadResponse,
				fmt.Sprintf("missing embedding for text at index %d", i))
		}
	}

	return result, nil
}

// sendRequest 发送API请求并解析响应
func (c *TongyiClient) sendRequest(ctx context.Context, reqData interface{}, respObj interface{}) error {
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	// 使用重试机制发送请求
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避重试
			select {
			case <-ctx.Done():
				return NewEmbeddingError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		req, reqErr := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.endpoint,
			bytes.NewBuffer(jsonData),
		)
		if reqErr != nil {
			return NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", reqErr))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
		req.Header.Set("Accept", "application/json")

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil && resp.StatusCode < 500 {
			// 成功或客户端错误，不需要重试
			break
		}
		if lastErr == nil {
			resp.Body.Close()
			resp = nil
		}
	}

	if lastErr != nil {
		return NewEmbeddingError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", lastErr))
	}
	if resp == nil {
		return NewEmbeddingError(ErrCodeServerError, "server error persisted after retries")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewEmbeddingError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewEmbeddingError(ErrCodeRateLimited, "too many requests, rate limit exceeded")
	}

	if resp.StatusCode != http.StatusOK {
		// 尝试解析错误响应
		var errResp struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			return NewEmbeddingError(ErrCodeServerError, errResp.Message)
		}
		return NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, respObj); err != nil {
		return NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	return nil
}

// isValidDimension 检查维度是否有效
func isValidDimension(dim int) bool {
	validDims := []int{1024, 768, 512, 256, 128, 64}
	for _, validDim := range validDims {
		if dim == validDim {
			return true
		}
	}
	return false
}

// 注册通义千问客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
