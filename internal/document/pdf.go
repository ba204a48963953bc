package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF 从PDF字节数据中提取纯文本和页数
// 页面文本按物理页码顺序以空行连接，没有文本内容的页面被跳过
// 所有页面都没有文本时返回空字符串，不报错
func extractPDF(data []byte) (string, int, error) {
	// pdfcpu的内容提取以文件为单位，先落盘到临时目录
	tmpDir, err := os.MkdirTemp("", "pdf_extract_")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(pdfPath, data, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write temp pdf file: %v", err)
	}

	conf := model.NewDefaultConfiguration()

	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read pdf page count: %v", err)
	}

	outDir := filepath.Join(tmpDir, "content")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create extraction dir: %v", err)
	}

	if err := api.ExtractContentFile(pdfPath, outDir, nil, conf); err != nil {
		return "", 0, fmt.Errorf("failed to extract text from pdf: %v", err)
	}

	// 读取所有提取出来的txt文件
	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read extracted text dir: %v", err)
	}

	// 按文件名中的页码数字排序，字典序会把第10页排在第2页之前
	sort.Slice(files, func(i, j int) bool {
		pi, pj := pageNumber(files[i].Name()), pageNumber(files[j].Name())
		if pi != pj {
			return pi < pj
		}
		return files[i].Name() < files[j].Name()
	})

	var allText strings.Builder
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".txt") {
			continue
		}
		pageData, err := os.ReadFile(filepath.Join(outDir, f.Name()))
		if err != nil {
			continue
		}

		// 内容流里混有绘图算子，只保留文本绘制算子携带的字符串
		pageText := strings.TrimSpace(contentStreamText(pageData))
		if pageText == "" {
			continue
		}

		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.WriteString(pageText)
	}

	return strings.TrimSpace(allText.String()), pageCount, nil
}

// pageNumber 从提取文件名中解析页码
// pdfcpu的输出文件名以页码数字结尾，形如 source_Content_page_12.txt
func pageNumber(name string) int {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}
	if end == len(name) {
		return 0
	}
	n, err := strconv.Atoi(name[end:])
	if err != nil {
		return 0
	}
	return n
}

// contentStreamText 从页面内容流中收集文本绘制算子的字符串参数
// 支持 Tj、'、" 以及 TJ 数组形式，每次绘制输出一行
func contentStreamText(stream []byte) string {
	var out strings.Builder
	var pending []string
	inArray := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(pending, ""))
		pending = nil
		if text == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(text)
	}

	i := 0
	for i < len(stream) {
		switch c := stream[i]; c {
		case '(':
			s, next := pdfStringLiteral(stream, i)
			if inArray {
				pending = append(pending, s)
			} else {
				pending = []string{s}
			}
			i = next
			continue
		case '<':
			// 十六进制字符串多为CID字形编码，脱离字体无法还原为文本
			for i < len(stream) && stream[i] != '>' {
				i++
			}
		case '[':
			inArray = true
			pending = nil
		case ']':
			inArray = false
		case '%':
			for i < len(stream) && stream[i] != '\n' {
				i++
			}
		case 'T':
			if i+1 < len(stream) && (stream[i+1] == 'j' || stream[i+1] == 'J') {
				flush()
				i += 2
				continue
			}
		case '\'', '"':
			flush()
		}
		i++
	}

	return out.String()
}

// pdfStringLiteral 解析从pos处开始的括号字符串
// 按PDF转义规则解码，返回字符串内容和结束后的下标
func pdfStringLiteral(stream []byte, pos int) (string, int) {
	var sb strings.Builder
	depth := 0

	i := pos
	for i < len(stream) {
		c := stream[i]

		if c == '\\' && i+1 < len(stream) {
			next := stream[i+1]
			switch {
			case next == 'n':
				sb.WriteByte('\n')
			case next == 'r':
				sb.WriteByte('\r')
			case next == 't':
				sb.WriteByte('\t')
			case next == 'b' || next == 'f':
				// 退格和换页对纯文本没有意义
			case next >= '0' && next <= '7':
				// 八进制转义，最多3位
				val := 0
				j := i + 1
				for j < len(stream) && j < i+4 && stream[j] >= '0' && stream[j] <= '7' {
					val = val*8 + int(stream[j]-'0')
					j++
				}
				sb.WriteByte(byte(val))
				i = j
				continue
			default:
				sb.WriteByte(next)
			}
			i += 2
			continue
		}

		switch c {
		case '(':
			depth++
			if depth > 1 {
				sb.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
		i++
	}

	return sb.String(), i
}
