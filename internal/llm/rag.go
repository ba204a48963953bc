package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NoContextAnswer 没有可用上下文时的固定回答
// 检索不到相关内容时直接返回该句，不调用大模型
const NoContextAnswer = "I don't have enough information in the document to answer this question."

// answerTemplate 文档问答提示词模板
// 包含变量：
// {{.Question}} - 用户问题
// {{.Context}} - 检索到的上下文片段
const answerTemplate = `You are a helpful assistant that answers questions based strictly on the provided document excerpts.
Use only the information in the excerpts below. If the excerpts do not contain enough information to answer the question, reply exactly: "I don't have enough information in the document to answer this question."

Document excerpts:
{{.Context}}

Question: {{.Question}}

Answer the question directly and concisely.`

// AnswerConfig 文档问答生成配置
type AnswerConfig struct {
	Template    string        // 提示词模板
	MaxTokens   int           // 最大生成Token数
	Temperature float32       // 温度参数
	Timeout     time.Duration // 超时时间
}

// DefaultAnswerConfig 默认问答配置
func DefaultAnswerConfig() *AnswerConfig {
	return &AnswerConfig{
		Template:    answerTemplate,
		MaxTokens:   2048,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// AnswerGenerator 基于检索上下文的问答生成器
type AnswerGenerator struct {
	client Client        // 大模型客户端
	config *AnswerConfig // 配置
}

// AnswerOption 问答配置选项函数类型
type AnswerOption func(*AnswerConfig)

// WithAnswerTemplate 设置提示词模板
func WithAnswerTemplate(template string) AnswerOption {
	return func(c *AnswerConfig) {
		c.Template = template
	}
}

// WithAnswerMaxTokens 设置最大Token数
func WithAnswerMaxTokens(tokens int) AnswerOption {
	return func(c *AnswerConfig) {
		c.MaxTokens = tokens
	}
}

// WithAnswerTemperature 设置温度参数
func WithAnswerTemperature(temp float32) AnswerOption {
	return func(c *AnswerConfig) {
		c.Temperature = temp
	}
}

// WithAnswerTimeout 设置请求超时时间
func WithAnswerTimeout(timeout time.Duration) AnswerOption {
	return func(c *AnswerConfig) {
		c.Timeout = timeout
	}
}

// NewAnswerGenerator 创建新的问答生成器
func NewAnswerGenerator(client Client, opts ...AnswerOption) *AnswerGenerator {
	cfg := DefaultAnswerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &AnswerGenerator{
		client: client,
		config: cfg,
	}
}

// Answer 根据上下文来源和问题生成回答
// 上下文为空时返回固定回答，不产生模型调用
func (g *AnswerGenerator) Answer(ctx context.Context, question string, sources []Source) (*AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "question cannot be empty")
	}

	if len(sources) == 0 {
		return &AnswerResult{Answer: NoContextAnswer, HasContext: false}, nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	prompt := g.buildPrompt(question, sources)

	response, err := g.client.Generate(
		ctxWithTimeout,
		prompt,
		WithCallMaxTokens(g.config.MaxTokens),
		WithCallTemperature(g.config.Temperature),
	)
	if err != nil {
		return nil, &GenerationError{Stage: "answer", Err: err}
	}

	return &AnswerResult{
		Answer:     strings.TrimSpace(response.Text),
		Sources:    sources,
		HasContext: true,
	}, nil
}

// buildPrompt 构建带上下文的提示词
// 每个来源以[Source N]标注，分块原文原样写入提示词
func (g *AnswerGenerator) buildPrompt(question string, sources []Source) string {
	var formatted strings.Builder
	for i, s := range sources {
		formatted.WriteString(fmt.Sprintf("[Source %d]\n%s\n\n", i+1, s.Content))
	}

	prompt := g.config.Template
	prompt = strings.ReplaceAll(prompt, "{{.Context}}", strings.TrimRight(formatted.String(), "\n"))
	prompt = strings.ReplaceAll(prompt, "{{.Question}}", question)
	return prompt
}
