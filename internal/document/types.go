package document

// DocumentType 文档类型
// 封闭的类型集合：扩展新类型时需要同时扩展检测逻辑和提取分支
type DocumentType string

const (
	// PDF 文档类型
	PDF DocumentType = "pdf"
	// Text 纯文本类型（含Markdown）
	Text DocumentType = "text"
	// Unknown 未知类型
	Unknown DocumentType = "unknown"
)

// ExtractedContent 提取出的文档内容
// 由提取器产生，直接交给分段器消费，不做持久化
type ExtractedContent struct {
	Text      string       // 提取出的纯文本
	Type      DocumentType // 检测到的文档类型
	PageCount int          // 页数，仅PDF文档有效，其余为0
}

// Chunk 文本分块
// 向量化和检索的基本单位，Index在文档内严格递增
type Chunk struct {
	Text      string // 分块文本内容
	Index     int    // 分块在文档内的序号，从0开始
	StartChar int    // 在原文中的起始字符偏移
	EndChar   int    // 在原文中的结束字符偏移
}

// Splitter 文本分段器接口
// 负责将长文本分割成适合向量化的小段
type Splitter interface {
	// Split 将文本分割成有序分块
	Split(text string) ([]Chunk, error)
}
