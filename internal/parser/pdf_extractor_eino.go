package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"

	"ai-recruiter-go/internal/logger"
)

var (
	// ErrEmptyExtraction PDF解析成功但没有任何文本内容（扫描件或损坏文件）
	ErrEmptyExtraction = errors.New("PDF未提取到任何文本")
)

// PDFExtractor 从PDF文件中提取纯文本
type PDFExtractor struct {
	parser *pdf.PDFParser
}

// NewPDFExtractor 创建PDF文本提取器
func NewPDFExtractor(ctx context.Context) (*PDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("初始化PDF解析器失败: %w", err)
	}
	return &PDFExtractor{parser: p}, nil
}

// ExtractTextFromFile 读取并提取PDF文件的全部文本
func (e *PDFExtractor) ExtractTextFromFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败: %w", err)
	}
	defer f.Close()

	docs, err := e.parser.Parse(ctx, f, einoparser.WithURI(path))
	if err != nil {
		return "", fmt.Errorf("解析PDF失败: %w", err)
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.Content)
	}

	text := NormalizeWhitespace(sb.String())
	if text == "" {
		return "", ErrEmptyExtraction
	}

	logger.Debug().
		Str("file", path).
		Int("chars", len(text)).
		Msg("PDF文本提取完成")

	return text, nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeWhitespace 压缩连续空白为单个空格并去除首尾空白
// PDF提取的文本常带大量换行和缩进，压缩后更利于拼接提示词
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
