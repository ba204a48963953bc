package document

import (
	"fmt"
	"strings"
)

// defaultSeparators 分割边界的优先级顺序
// 优先在段落边界断开，其次是行、句子、单词边界
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// SplitterConfig 分段器配置
type SplitterConfig struct {
	ChunkSize    int // 分块大小（按字符数）
	ChunkOverlap int // 相邻分块的重叠大小（字符数）
}

// DefaultSplitterConfig 返回默认分段器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Validate 校验分段器配置
func (c SplitterConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	return nil
}

// TextSplitter 递归文本分段器
// 按边界优先级递归分割文本，并在相邻分块间保留重叠
type TextSplitter struct {
	config     SplitterConfig
	separators []string
}

// NewTextSplitter 创建新的文本分段器
func NewTextSplitter(config SplitterConfig) (*TextSplitter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TextSplitter{
		config:     config,
		separators: defaultSeparators,
	}, nil
}

// span 原文中的一段连续区间，左闭右开
type span struct {
	start int
	end   int
}

func (s span) length() int {
	return s.end - s.start
}

// Split 将文本分割成有序分块
// 分块在文档内按Index严格递增，文本去除首尾空白后为空的分块被丢弃
func (s *TextSplitter) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return []Chunk{}, nil
	}

	// 第一阶段：递归切出不超过ChunkSize的细粒度片段
	pieces := s.splitSpan(text, span{0, len(text)}, s.separators)

	// 第二阶段：贪心合并片段并保留重叠
	windows := s.mergeSpans(pieces)

	// 构造分块，去除首尾空白并修正偏移
	chunks := make([]Chunk, 0, len(windows))
	for _, w := range windows {
		raw := text[w.start:w.end]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		offset := strings.Index(raw, trimmed)
		chunks = append(chunks, Chunk{
			Text:      trimmed,
			Index:     len(chunks),
			StartChar: w.start + offset,
			EndChar:   w.start + offset + len(trimmed),
		})
	}

	return chunks, nil
}

// splitSpan 递归分割区间，分隔符保留在前一个片段的末尾
// 返回的片段首尾相接，拼接后恰好还原原区间
func (s *TextSplitter) splitSpan(text string, sp span, separators []string) []span {
	if sp.length() <= s.config.ChunkSize {
		return []span{sp}
	}

	// 无可用分隔符时，超长片段原样保留为一个整体
	if len(separators) == 0 {
		return []span{sp}
	}

	sep := separators[0]
	rest := separators[1:]

	segment := text[sp.start:sp.end]
	if !strings.Contains(segment, sep) {
		return s.splitSpan(text, sp, rest)
	}

	var result []span
	cursor := sp.start
	for cursor < sp.end {
		idx := strings.Index(text[cursor:sp.end], sep)
		var piece span
		if idx == -1 {
			piece = span{cursor, sp.end}
		} else {
			// 分隔符归入前一个片段，保证片段连续覆盖原文
			piece = span{cursor, cursor + idx + len(sep)}
		}
		cursor = piece.end

		if piece.length() > s.config.ChunkSize {
			result = append(result, s.splitSpan(text, piece, rest)...)
		} else {
			result = append(result, piece)
		}
	}

	return result
}

// mergeSpans 贪心合并相邻片段直到接近ChunkSize
// 合并窗口在输出一个分块后从头部收缩，保留不超过ChunkOverlap的尾部作为下一块的开头
func (s *TextSplitter) mergeSpans(pieces []span) []span {
	var result []span
	var window []span
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		result = append(result, span{window[0].start, window[len(window)-1].end})
	}

	for _, p := range pieces {
		// 超长的不可分片段单独成块，不与前后片段合并
		if p.length() > s.config.ChunkSize {
			flush()
			window = nil
			windowLen = 0
			result = append(result, p)
			continue
		}

		if windowLen+p.length() > s.config.ChunkSize && windowLen > 0 {
			flush()

			// 从窗口头部弹出片段，直到剩余部分可以容纳新片段且不超过重叠上限
			for windowLen > s.config.ChunkOverlap ||
				(windowLen+p.length() > s.config.ChunkSize && windowLen > 0) {
				windowLen -= window[0].length()
				window = window[1:]
				if len(window) == 0 {
					break
				}
			}
		}

		window = append(window, p)
		windowLen += p.length()
	}

	flush()
	return result
}
