package agent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrKeysExhausted 所有密钥均被限流或失败，本次调用放弃
	ErrKeysExhausted = errors.New("所有API密钥均不可用")

	// ErrMalformedResponse LLM返回内容不是合法JSON，直接失败不重试
	ErrMalformedResponse = errors.New("LLM响应格式非法")
)

// ExhaustedError 密钥耗尽错误，携带尝试次数和最后一次失败原因
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("尝试 %d 个密钥后放弃: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Is 支持 errors.Is(err, ErrKeysExhausted)
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrKeysExhausted
}

// APIStatusError 上游返回非2xx状态
type APIStatusError struct {
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("API请求失败，状态码 %d: %s", e.StatusCode, e.Body)
}

var fencePattern = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// StripCodeFences 剥离LLM输出外层的Markdown代码围栏
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}
