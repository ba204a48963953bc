package embedding

// dashScopeRequest DashScope嵌入API请求结构
type dashScopeRequest struct {
	Model      string               `json:"model"`                // 模型名称
	Input      dashScopeInput       `json:"input"`                // 输入文本
	Parameters *dashScopeParameters `json:"parameters,omitempty"` // 可选参数
}

// dashScopeInput 请求的输入部分
type dashScopeInput struct {
	Texts []string `json:"texts"` // 需要嵌入的文本列表
}

// dashScopeParameters 请求的参数部分
type dashScopeParameters struct {
	Dimension  int    `json:"dimension,omitempty"`   // 向量维度
	OutputType string `json:"output_type,omitempty"` // 输出类型
}

// dashScopeResponse DashScope嵌入API响应结构
type dashScopeResponse struct {
	RequestID string `json:"request_id"`        // 请求ID
	Code      string `json:"code,omitempty"`    // 错误码，成功时为空
	Message   string `json:"message,omitempty"` // 错误消息
	Output    struct {
		Embeddings []struct {
			Embedding []float32 `json:"embedding"`  // 嵌入向量
			TextIndex int       `json:"text_index"` // 对应的输入文本序号
		} `json:"embeddings"`
	} `json:"output"` // 输出结果
	Usage struct {
		TotalTokens int `json:"total_tokens"` // 使用的总token数
	} `json:"usage"` // 资源使用情况
}
