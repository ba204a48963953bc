package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// quizTemplate 测验生成提示词模板
// 包含变量：
// {{.NumQuestions}} - 题目数量
// {{.Difficulty}} - 难度
// {{.Context}} - 文档内容片段
const quizTemplate = `You are a quiz generator. Create exactly {{.NumQuestions}} multiple-choice questions at {{.Difficulty}} difficulty, based strictly on the document content below.

Document content:
{{.Context}}

Requirements:
- Difficulty {{.Difficulty}}: {{.DifficultyGuidance}}
- Each question must have exactly 4 options.
- Exactly one option is correct, identified by its zero-based index.
- Include a brief explanation for the correct answer.
- Base every question on the document content only.

Respond with JSON only, no other text, in this exact format:
{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer_index": 0, "explanation": "..."}]}`

// QuizConfig 测验生成配置
type QuizConfig struct {
	Template    string        // 提示词模板
	MaxTokens   int           // 最大生成Token数
	Temperature float32       // 温度参数
	Timeout     time.Duration // 超时时间
}

// DefaultQuizConfig 默认测验生成配置
func DefaultQuizConfig() *QuizConfig {
	return &QuizConfig{
		Template:    quizTemplate,
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}

// QuizGenerator 基于文档内容的测验生成器
type QuizGenerator struct {
	client Client      // 大模型客户端
	config *QuizConfig // 配置
}

// QuizOption 测验配置选项函数类型
type QuizOption func(*QuizConfig)

// WithQuizMaxTokens 设置最大Token数
func WithQuizMaxTokens(tokens int) QuizOption {
	return func(c *QuizConfig) {
		c.MaxTokens = tokens
	}
}

// WithQuizTemperature 设置温度参数
func WithQuizTemperature(temp float32) QuizOption {
	return func(c *QuizConfig) {
		c.Temperature = temp
	}
}

// WithQuizTimeout 设置请求超时时间
func WithQuizTimeout(timeout time.Duration) QuizOption {
	return func(c *QuizConfig) {
		c.Timeout = timeout
	}
}

// NewQuizGenerator 创建新的测验生成器
func NewQuizGenerator(client Client, opts ...QuizOption) *QuizGenerator {
	cfg := DefaultQuizConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &QuizGenerator{
		client: client,
		config: cfg,
	}
}

// Generate 根据文档内容片段生成测验题目
// 模型输出中无法通过校验的题目被丢弃；无可用内容或全部题目无效时返回空结果，不报错
func (g *QuizGenerator) Generate(ctx context.Context, contexts []string, numQuestions int, difficulty string) (*QuizResult, error) {
	if numQuestions <= 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "number of questions must be positive")
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	// 没有可用内容时不调用大模型，空题目列表是正常结果
	if len(contexts) == 0 {
		return &QuizResult{Questions: []Question{}, HasContext: false}, nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	prompt := g.buildPrompt(contexts, numQuestions, difficulty)

	response, err := g.client.Generate(
		ctxWithTimeout,
		prompt,
		WithCallMaxTokens(g.config.MaxTokens),
		WithCallTemperature(g.config.Temperature),
	)
	if err != nil {
		return nil, &GenerationError{Stage: "quiz", Err: err}
	}

	questions, err := parseQuizOutput(response.Text)
	if err != nil {
		return nil, &GenerationError{Stage: "quiz", Err: err}
	}

	// 逐题校验，丢弃无效题目；全部无效时返回空列表，仍是成功结果
	valid := make([]Question, 0, len(questions))
	for _, q := range questions {
		if validateQuestion(q) {
			valid = append(valid, q)
		}
	}

	// 超出请求数量的题目截断
	if len(valid) > numQuestions {
		valid = valid[:numQuestions]
	}

	return &QuizResult{Questions: valid, HasContext: true}, nil
}

// difficultyGuidance 各难度档位的出题指引
func difficultyGuidance(difficulty string) string {
	switch difficulty {
	case "easy":
		return "test direct recall of facts stated in the document"
	case "hard":
		return "test analysis and synthesis of ideas across the document"
	default:
		return "test application of the concepts in the document"
	}
}

// buildPrompt 构建测验生成提示词
// 每个片段以[Section N]标注
func (g *QuizGenerator) buildPrompt(contexts []string, numQuestions int, difficulty string) string {
	var formatted strings.Builder
	for i, c := range contexts {
		formatted.WriteString(fmt.Sprintf("[Section %d]\n%s\n\n", i+1, c))
	}

	prompt := g.config.Template
	prompt = strings.ReplaceAll(prompt, "{{.NumQuestions}}", fmt.Sprintf("%d", numQuestions))
	prompt = strings.ReplaceAll(prompt, "{{.Difficulty}}", difficulty)
	prompt = strings.ReplaceAll(prompt, "{{.DifficultyGuidance}}", difficultyGuidance(difficulty))
	prompt = strings.ReplaceAll(prompt, "{{.Context}}", strings.TrimRight(formatted.String(), "\n"))
	return prompt
}

// parseQuizOutput 从模型输出中解析测验JSON
// 模型可能在JSON前后附带说明文字或代码块标记，取第一个配平的大括号块
func parseQuizOutput(text string) ([]Question, error) {
	jsonText := extractJSONObject(text)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object found in model output")
	}

	var payload quizPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse quiz JSON: %v", err)
	}
	if payload.Questions == nil {
		return nil, fmt.Errorf("model output is missing the questions array")
	}

	return payload.Questions, nil
}

// extractJSONObject 提取文本中第一个配平的JSON对象
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}

// validateQuestion 校验单个题目的完整性
func validateQuestion(q Question) bool {
	if strings.TrimSpace(q.Question) == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex > 3 {
		return false
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return false
	}
	return true
}
