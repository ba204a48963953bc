package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitterConfigValidation 测试分段器配置校验
func TestSplitterConfigValidation(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		_, err := NewTextSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
		assert.NoError(t, err)
	})

	t.Run("zero chunk size", func(t *testing.T) {
		_, err := NewTextSplitter(SplitterConfig{ChunkSize: 0, ChunkOverlap: 0})
		assert.Error(t, err, "块大小为0应校验失败")
	})

	t.Run("negative overlap", func(t *testing.T) {
		_, err := NewTextSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: -1})
		assert.Error(t, err, "负的重叠大小应校验失败")
	})

	t.Run("overlap not less than chunk size", func(t *testing.T) {
		_, err := NewTextSplitter(SplitterConfig{ChunkSize: 100, ChunkOverlap: 100})
		assert.Error(t, err, "重叠大小不小于块大小应校验失败")
	})
}

// TestSplitChunkSizeInvariant 测试分块大小约束
func TestSplitChunkSizeInvariant(t *testing.T) {
	splitter, err := NewTextSplitter(SplitterConfig{ChunkSize: 50, ChunkOverlap: 10})
	require.NoError(t, err)

	para := strings.Repeat("word ", 6)
	text := para + "\n\n" + para + "\n\n" + para

	chunks, err := splitter.Split(text)
	require.NoError(t, err)

	t.Logf("分块数量: %d", len(chunks))
	for _, c := range chunks {
		t.Logf("分块 %d (长度=%d): '%s'", c.Index, len(c.Text), c.Text)
	}

	assert.Equal(t, 3, len(chunks), "三个段落应分割成三个分块")
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 50, "可分割文本的每个分块不应超过ChunkSize")
	}
}

// TestSplitOrderAndOffsets 测试分块顺序和偏移
func TestSplitOrderAndOffsets(t *testing.T) {
	splitter, err := NewTextSplitter(SplitterConfig{ChunkSize: 40, ChunkOverlap: 0})
	require.NoError(t, err)

	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks, err := splitter.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		// Index严格递增且连续
		assert.Equal(t, i, c.Index, "分块序号应连续递增")

		// 偏移指向原文中的分块文本
		assert.Equal(t, c.Text, text[c.StartChar:c.EndChar], "偏移应精确指向原文中的分块内容")

		// 分块顺序与原文顺序一致
		if i > 0 {
			assert.Greater(t, c.StartChar, chunks[i-1].StartChar, "分块应按原文顺序排列")
		}
	}
}

// TestSplitOverlapRetention 测试相邻分块的重叠保留
func TestSplitOverlapRetention(t *testing.T) {
	splitter, err := NewTextSplitter(SplitterConfig{ChunkSize: 30, ChunkOverlap: 15})
	require.NoError(t, err)

	text := "Sentence one. Sentence two. Sentence three."
	chunks, err := splitter.Split(text)
	require.NoError(t, err)

	t.Logf("分块数量: %d", len(chunks))
	for _, c := range chunks {
		t.Logf("分块 %d: '%s' [%d,%d)", c.Index, c.Text, c.StartChar, c.EndChar)
	}

	require.Equal(t, 2, len(chunks))
	assert.Contains(t, chunks[0].Text, "Sentence two")
	assert.True(t, strings.HasPrefix(chunks[1].Text, "Sentence two"), "第二个分块应以重叠部分开头")

	// 重叠意味着后一块的起点落在前一块的范围内
	assert.Less(t, chunks[1].StartChar, chunks[0].EndChar, "相邻分块的区间应有重叠")
}

// TestSplitOversizedToken 测试超长不可分割片段的处理
func TestSplitOversizedToken(t *testing.T) {
	splitter, err := NewTextSplitter(SplitterConfig{ChunkSize: 50, ChunkOverlap: 10})
	require.NoError(t, err)

	t.Run("oversized token alone", func(t *testing.T) {
		token := strings.Repeat("x", 80)
		chunks, err := splitter.Split(token)
		require.NoError(t, err)

		require.Equal(t, 1, len(chunks), "无边界可用的超长片段应原样作为一个分块")
		assert.Equal(t, token, chunks[0].Text)
	})

	t.Run("oversized token between normal text", func(t *testing.T) {
		token := strings.Repeat("y", 80)
		text := "aaa bbb " + token + " ccc"

		chunks, err := splitter.Split(text)
		require.NoError(t, err)

		t.Logf("分块数量: %d", len(chunks))
		for _, c := range chunks {
			t.Logf("分块 %d (长度=%d)", c.Index, len(c.Text))
		}

		require.Equal(t, 3, len(chunks))
		assert.Equal(t, "aaa bbb", chunks[0].Text)
		assert.Equal(t, token, chunks[1].Text, "超长片段应独立成块且内容不变")
		assert.Equal(t, "ccc", chunks[2].Text)
	})
}

// TestSplitBoundaryPreference 测试边界优先级
func TestSplitBoundaryPreference(t *testing.T) {
	splitter, err := NewTextSplitter(SplitterConfig{ChunkSize: 30, ChunkOverlap: 0})
	require.NoError(t, err)

	// 段落边界可用时应优先在段落处断开，而不是在句子或单词处
	text := "Short first paragraph.\n\nShort second paragraph."
	chunks, err := splitter.Split(text)
	require.NoError(t, err)

	require.Equal(t, 2, len(chunks))
	assert.Equal(t, "Short first paragraph.", chunks[0].Text)
	assert.Equal(t, "Short second paragraph.", chunks[1].Text)
}

// TestSplitEmptyInput 测试空输入的处理
func TestSplitEmptyInput(t *testing.T) {
	splitter, err := NewTextSplitter(DefaultSplitterConfig())
	require.NoError(t, err)

	chunks, err := splitter.Split("")
	assert.NoError(t, err)
	assert.Empty(t, chunks, "空输入应返回空分块列表")

	chunks, err = splitter.Split("   \n\t   ")
	assert.NoError(t, err)
	assert.Empty(t, chunks, "只包含空白的输入应返回空分块列表")
}

// TestSplitShortText 测试短文本不分割
func TestSplitShortText(t *testing.T) {
	splitter, err := NewTextSplitter(DefaultSplitterConfig())
	require.NoError(t, err)

	text := "A single short sentence."
	chunks, err := splitter.Split(text)
	require.NoError(t, err)

	require.Equal(t, 1, len(chunks), "不超过ChunkSize的文本应作为单个分块")
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}
