package llm

import "fmt"

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeBadOutput      = 1008 // 模型输出无法解析
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey = "invalid API key"
	ErrMsgEmptyPrompt   = "prompt cannot be empty"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// GenerationError 内容生成失败错误
// 覆盖模型调用失败和输出不可用两种情况
type GenerationError struct {
	Stage string // 失败阶段：answer或quiz
	Err   error  // 底层错误
}

// Error 实现error接口
func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

// Unwrap 返回底层错误
func (e *GenerationError) Unwrap() error {
	return e.Err
}
