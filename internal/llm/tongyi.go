package llm

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
	// 通义千问API端点
	defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// TongyiClient 通义千问大模型客户端实现
type TongyiClient struct {
	apiKey      string       // API密钥
	baseURL     string       // API端点
	model       string       // 模型名称
	httpClient  *http.Client // HTTP客户端
	maxRetries  int          // 最大重试次数
	maxTokens   int          // 最大生成Token数
	temperature float32      // 温度参数
	topP        float32      // topP参数
}

// NewTongyiClient 创建新的通义千问大模型客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTongyiEndpoint
	}

	return &TongyiClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.model
}

// Generate 根据提示词生成回答
func (c *TongyiClient) Generate(ctx context.Context, prompt string, options ...CallOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	messages := []Message{
		{Role: RoleUser, Content: prompt},
	}
	return c.Chat(ctx, messages, options...)
}

// Chat 进行多轮对话
func (c *TongyiClient) Chat(ctx context.Context, messages []Message, options ...CallOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := &CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	params := &tongyiParameters{
		ResultFormat: "message",
	}

	// 调用选项优先于客户端默认值
	if opts.MaxTokens != nil {
		params.MaxTokens = opts.MaxTokens
	} else if c.maxTokens > 0 {
		maxTokens := c.maxTokens
		params.MaxTokens = &maxTokens
	}

	if opts.Temperature != nil {
		params.Temperature = opts.Temperature
	} else if c.temperature > 0 {
		temp := c.temperature
		params.Temperature = &temp
	}

	if opts.TopP != nil {
		params.TopP = opts.TopP
	} else if c.topP > 0 {
		topP := c.topP
		params.TopP = &topP
	}

	if opts.TopK != nil {
		params.TopK = opts.TopK
	}

	req := &tongyiRequest{
		Model:      c.model,
		Input:      &tongyiInput{Messages: messages},
		Parameters: params,
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Output.Choices) == 0 {
		return nil, NewLLMError(ErrCodeServerError, "empty response from API")
	}

	return &Response{
		Text:       resp.Output.Choices[0].Message.Content,
		TokenCount: resp.Usage.TotalTokens,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}, nil
}

// sendRequest 发送API请求并解析响应
func (c *TongyiClient) sendRequest(ctx context.Context, req *tongyiRequest) (*tongyiResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	// 使用重试机制发送请求
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避重试
			select {
			case <-ctx.Done():
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL,
			bytes.NewBuffer(jsonData),
		)
		if reqErr != nil {
			return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", reqErr))
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
		httpReq.Header.Set("Accept", "application/json")

		resp, lastErr = c.httpClient.Do(httpReq)
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
		return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", lastErr))
	}
	if resp == nil {
		return nil, NewLLMError(ErrCodeServerError, "server error persisted after retries")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewLLMError(ErrCodeRateLimited, "too many requests, rate limit exceeded")
	}

	if resp.StatusCode != http.StatusOK {
		// 尝试解析错误响应
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			return nil, NewLLMError(ErrCodeServerError,
				fmt.Sprintf("API error: %s (%s)", errResp.Message, errResp.Code))
		}
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var tongyiResp tongyiResponse
	if err := json.Unmarshal(body, &tongyiResp); err != nil {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	if tongyiResp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", tongyiResp.Message, tongyiResp.Code))
	}

	return &tongyiResp, nil
}

// 在包初始化时注册通义千问客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
