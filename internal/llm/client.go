package llm

import (
	"context"
	"time"
)

// Client 大模型客户端接口
// 负责处理与大语言模型的交互
type Client interface {
	// Generate 根据提示词生成回答
	Generate(ctx context.Context, prompt string, options ...CallOption) (*Response, error)

	// Chat 进行多轮对话
	Chat(ctx context.Context, messages []Message, options ...CallOption) (*Response, error)

	// Name 返回模型名称
	Name() string
}

// Config 大模型客户端配置
type Config struct {
	APIKey      string        // API密钥
	BaseURL     string        // API基础URL
	Model       string        // 模型名称
	Timeout     time.Duration // 请求超时时间
	MaxRetries  int           // 最大重试次数，默认为0即不重试
	MaxTokens   int           // 最大生成Token数
	Temperature float32       // 采样温度(0.0-2.0)
	TopP        float32       // 核采样概率阈值(0.0-1.0)
}

// DefaultConfig 返回默认配置
// 默认不重试，每次请求只对外调用一次，重试策略由调用方通过选项开启
func DefaultConfig() *Config {
	return &Config{
		Model:       ModelQwenTurbo,
		Timeout:     60 * time.Second,
		MaxRetries:  0,
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        0.9,
	}
}

// Option 客户端配置选项函数类型
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// WithBaseURL 设置API基础URL
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithMaxTokens 设置最大生成Token数
func WithMaxTokens(tokens int) Option {
	return func(c *Config) {
		c.MaxTokens = tokens
	}
}

// WithTemperature 设置采样温度
func WithTemperature(temp float32) Option {
	return func(c *Config) {
		c.Temperature = temp
	}
}

// WithTopP 设置核采样概率阈值
func WithTopP(topP float32) Option {
	return func(c *Config) {
		c.TopP = topP
	}
}

// NewConfig 创建一个新的配置并应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// CallOption 单次调用的选项
// Generate和Chat共用同一组调用选项
type CallOption func(*CallOptions)

// CallOptions 单次调用的选项集合
type CallOptions struct {
	MaxTokens   *int     // 最大生成Token数
	Temperature *float32 // 采样温度
	TopP        *float32 // 核采样概率阈值
	TopK        *int     // 生成候选集大小
}

// WithCallMaxTokens 设置本次调用的最大Token数
func WithCallMaxTokens(tokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = &tokens
	}
}

// WithCallTemperature 设置本次调用的采样温度
func WithCallTemperature(temp float32) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &temp
	}
}

// WithCallTopP 设置本次调用的核采样概率阈值
func WithCallTopP(topP float32) CallOption {
	return func(o *CallOptions) {
		o.TopP = &topP
	}
}

// WithCallTopK 设置本次调用的候选集大小
func WithCallTopK(topK int) CallOption {
	return func(o *CallOptions) {
		o.TopK = &topK
	}
}

// Factory 大模型客户端工厂函数类型
type Factory func(opts ...Option) (Client, error)

// 全局注册的大模型客户端工厂函数
var clientFactories = make(map[string]Factory)

// RegisterClient 注册大模型客户端工厂函数
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient 根据名称创建大模型客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factory, exists := clientFactories[name]
	if !exists {
		return nil, NewLLMError(
			ErrCodeInvalidRequest,
			"llm client type not registered: "+name)
	}
	return factory(opts...)
}
