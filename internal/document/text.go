package document

import (
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// extractText 从字节数据中提取纯文本
// 优先按UTF-8解码，无效字节序列退化为Latin-1解码，保证提取不因编码失败
func extractText(sourceURL string, data []byte) (string, error) {
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = decodeLatin1(data)
	}

	// Markdown来源先展平成纯文本，去除标记符号对分块和检索的干扰
	ext := urlExtension(sourceURL)
	if ext == ".md" || ext == ".markdown" {
		text = flattenMarkdown(text)
	}

	return text, nil
}

// decodeLatin1 将字节数据按Latin-1逐字节解码
// Latin-1的每个字节都对应一个合法码点，解码永不失败
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// flattenMarkdown 将Markdown文本展平为纯文本
// 先渲染为HTML再剥离标签，保留段落和列表的结构性换行
func flattenMarkdown(text string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	doc := mdParser.Parse([]byte(text))

	htmlFlags := html.CommonFlags
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})

	htmlContent := markdown.Render(doc, renderer)
	return extractTextFromHTML(string(htmlContent))
}

// extractTextFromHTML 从HTML中提取纯文本
// 注意：这是一个简化的实现，更复杂的情况可能需要使用HTML解析库
func extractTextFromHTML(htmlText string) string {
	// 替换常见的HTML元素为空格或换行符
	replacements := []struct {
		Old string
		New string
	}{
		{"<br>", "\n"},
		{"<br/>", "\n"},
		{"<br />", "\n"},
		{"<p>", ""},
		{"</p>", "\n\n"},
		{"<li>", "- "},
		{"</li>", "\n"},
		{"<ul>", "\n"},
		{"</ul>", "\n"},
		{"<ol>", "\n"},
		{"</ol>", "\n"},
		{"<h1>", "\n\n"},
		{"</h1>", "\n\n"},
		{"<h2>", "\n\n"},
		{"</h2>", "\n\n"},
		{"<h3>", "\n\n"},
		{"</h3>", "\n\n"},
		{"<h4>", "\n\n"},
		{"</h4>", "\n\n"},
		{"<h5>", "\n\n"},
		{"</h5>", "\n\n"},
		{"<h6>", "\n\n"},
		{"</h6>", "\n\n"},
	}

	result := htmlText
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.Old, r.New)
	}

	// 移除所有HTML标签
	for {
		start := strings.Index(result, "<")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], ">")
		if end == -1 {
			break
		}
		result = result[:start] + " " + result[start+end+1:]
	}

	return normalizeWhitespace(result)
}

// normalizeWhitespace 规范化文本中的空白符
func normalizeWhitespace(text string) string {
	// 按行规范化行内空白，保留换行结构
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	// 替换连续多个换行符为最多两个
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}
