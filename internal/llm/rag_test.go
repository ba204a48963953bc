package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient 测试用的大模型客户端桩
type stubClient struct {
	response   string // 固定返回的文本
	err        error  // 固定返回的错误
	lastPrompt string // 最近一次收到的提示词
	callCount  int    // 调用次数
}

func (s *stubClient) Generate(ctx context.Context, prompt string, options ...CallOption) (*Response, error) {
	s.callCount++
	s.lastPrompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Text: s.response, ModelName: s.Name(), FinishTime: time.Now()}, nil
}

func (s *stubClient) Chat(ctx context.Context, messages []Message, options ...CallOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}
	return s.Generate(ctx, messages[len(messages)-1].Content, options...)
}

func (s *stubClient) Name() string {
	return "stub-model"
}

// TestAnswerWithContexts 测试带上下文的问答生成
func TestAnswerWithContexts(t *testing.T) {
	stub := &stubClient{response: "The answer is 42."}
	generator := NewAnswerGenerator(stub)

	sources := []Source{
		{Content: "The ultimate answer to everything is 42.", Metadata: map[string]interface{}{"chunk_index": 0}},
		{Content: "This fact was computed by Deep Thought.", Metadata: map[string]interface{}{"chunk_index": 1}},
	}

	result, err := generator.Answer(context.Background(), "What is the answer?", sources)
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", result.Answer)
	assert.Equal(t, sources, result.Sources, "回答应携带使用的上下文来源及其元数据")
	assert.True(t, result.HasContext)
	assert.Equal(t, 1, stub.callCount)
}

// TestAnswerPromptContainsChunks 测试上下文片段原样进入提示词
func TestAnswerPromptContainsChunks(t *testing.T) {
	stub := &stubClient{response: "ok"}
	generator := NewAnswerGenerator(stub)

	sources := []Source{
		{Content: "Photosynthesis converts sunlight into chemical energy."},
		{Content: "Chlorophyll absorbs mostly red and blue light."},
	}

	_, err := generator.Answer(context.Background(), "How do plants make energy?", sources)
	require.NoError(t, err)

	// 每个来源的分块原文必须原样出现在提示词中，并带有来源标注
	for i, s := range sources {
		assert.Contains(t, stub.lastPrompt, s.Content, "分块原文应原样出现在提示词中")
		assert.Contains(t, stub.lastPrompt, sourceLabel(i+1))
	}
	assert.Contains(t, stub.lastPrompt, "How do plants make energy?")
}

// sourceLabel 构造来源标注文本
func sourceLabel(n int) string {
	switch n {
	case 1:
		return "[Source 1]"
	case 2:
		return "[Source 2]"
	default:
		return ""
	}
}

// TestAnswerNoContext 测试无上下文时的固定回答
func TestAnswerNoContext(t *testing.T) {
	stub := &stubClient{response: "should never be used"}
	generator := NewAnswerGenerator(stub)

	result, err := generator.Answer(context.Background(), "What is in the document?", nil)
	require.NoError(t, err)

	assert.Equal(t, NoContextAnswer, result.Answer, "无上下文应返回固定回答")
	assert.Empty(t, result.Sources)
	assert.False(t, result.HasContext, "无上下文时标志应为假")
	assert.Equal(t, 0, stub.callCount, "无上下文时不应调用大模型")
}

// TestAnswerEmptyQuestion 测试空问题的处理
func TestAnswerEmptyQuestion(t *testing.T) {
	generator := NewAnswerGenerator(&stubClient{})

	_, err := generator.Answer(context.Background(), "   ", []Source{{Content: "some context"}})
	require.Error(t, err)

	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
}

// TestAnswerGenerationFailure 测试模型调用失败的错误包装
func TestAnswerGenerationFailure(t *testing.T) {
	stub := &stubClient{err: NewLLMError(ErrCodeServerError, "model unavailable")}
	generator := NewAnswerGenerator(stub)

	_, err := generator.Answer(context.Background(), "question", []Source{{Content: "context"}})
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "answer", genErr.Stage)
	assert.Contains(t, genErr.Err.Error(), "model unavailable")
}
