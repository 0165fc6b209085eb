package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrJobNotFound       = errors.New("岗位不存在")
	ErrResultNotFound    = errors.New("筛选结果不存在")
	ErrNoFilesSupplied   = errors.New("未提供任何简历文件")
	ErrInvalidFileFormat = errors.New("简历文件格式不支持")
	ErrExtractTextFailed = errors.New("提取简历文本失败")
	ErrAnalysisFailed    = errors.New("简历评估失败")
	ErrPersistFailed     = errors.New("保存筛选结果失败")
)

// ScreenError 包含详细上下文的筛选流程错误
type ScreenError struct {
	File    string
	Op      string
	BaseErr error
	Detail  string
}

func (e *ScreenError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.File, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.File)
}

func (e *ScreenError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ScreenError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数

func NewExtractError(file, detail string) error {
	return &ScreenError{
		File:    file,
		Op:      "extract",
		BaseErr: ErrExtractTextFailed,
		Detail:  detail,
	}
}

func NewAnalysisError(file, detail string) error {
	return &ScreenError{
		File:    file,
		Op:      "analyze",
		BaseErr: ErrAnalysisFailed,
		Detail:  detail,
	}
}

func NewPersistError(file, detail string) error {
	return &ScreenError{
		File:    file,
		Op:      "persist",
		BaseErr: ErrPersistFailed,
		Detail:  detail,
	}
}

func NewFormatError(file, detail string) error {
	return &ScreenError{
		File:    file,
		Op:      "validate",
		BaseErr: ErrInvalidFileFormat,
		Detail:  detail,
	}
}
