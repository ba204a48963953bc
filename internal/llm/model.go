package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`    // 角色
	Content string      `json:"content"` // 内容
}

// tongyiRequest 通义千问请求结构
type tongyiRequest struct {
	Model      string            `json:"model"`                // 模型名称
	Input      *tongyiInput      `json:"input"`                // 输入内容
	Parameters *tongyiParameters `json:"parameters,omitempty"` // 可选参数
}

// tongyiInput 请求输入内容
type tongyiInput struct {
	Messages []Message `json:"messages"` // 消息列表
}

// tongyiParameters 请求参数
type tongyiParameters struct {
	Temperature  *float32 `json:"temperature,omitempty"`   // 采样温度
	TopP         *float32 `json:"top_p,omitempty"`         // 核采样概率阈值
	TopK         *int     `json:"top_k,omitempty"`         // 生成候选集大小
	MaxTokens    *int     `json:"max_tokens,omitempty"`    // 最大生成Token数
	ResultFormat string   `json:"result_format,omitempty"` // 返回格式
}

// tongyiResponse 通义千问响应结构
type tongyiResponse struct {
	RequestID string `json:"request_id"`        // 请求ID
	Code      string `json:"code,omitempty"`    // 错误码，成功时为空
	Message   string `json:"message,omitempty"` // 错误消息
	Output    struct {
		Choices []struct {
			FinishReason string  `json:"finish_reason"` // 结束原因
			Message      Message `json:"message"`       // 消息内容
		} `json:"choices"`
	} `json:"output"` // 输出结果
	Usage struct {
		InputTokens  int `json:"input_tokens"`  // 输入token数
		OutputTokens int `json:"output_tokens"` // 输出token数
		TotalTokens  int `json:"total_tokens"`  // 总token数
	} `json:"usage"` // 资源使用情况
}

// Response 统一的响应结构
type Response struct {
	Text       string    // 生成的文本
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// Source 回答依据的上下文来源
// 携带分块原文和入库时写入的元数据
type Source struct {
	Content  string                 `json:"content"`            // 分块原文
	Metadata map[string]interface{} `json:"metadata,omitempty"` // 分块元数据
}

// AnswerResult 文档问答的生成结果
type AnswerResult struct {
	Answer     string   `json:"answer"`      // 回答内容
	Sources    []Source `json:"sources"`     // 用于生成回答的上下文来源
	HasContext bool     `json:"has_context"` // 是否检索到了可用的上下文
}

// QuizResult 文档出题的生成结果
// 无可用上下文时题目列表为空，这是正常结果而非错误
type QuizResult struct {
	Questions  []Question // 通过校验的题目
	HasContext bool       // 是否检索到了可用的上下文
}

// Question 测验题目
// 四个选项，正确答案以下标标识
type Question struct {
	Question           string   `json:"question"`             // 题干
	Options            []string `json:"options"`              // 四个候选选项
	CorrectAnswerIndex int      `json:"correct_answer_index"` // 正确选项下标，0-3
	Explanation        string   `json:"explanation"`          // 答案解析
}

// quizPayload 模型输出的测验JSON外层结构
type quizPayload struct {
	Questions []Question `json:"questions"`
}

// Model 常用模型名称
const (
	ModelQwenTurbo = "qwen-turbo" // 通义千问-Turbo模型（较快，基础能力）
	ModelQwenPlus  = "qwen-plus"  // 通义千问-Plus模型（平衡速度和性能）
	ModelQwenMax   = "qwen-max"   // 通义千问-Max模型（高级能力，速度较慢）
)
