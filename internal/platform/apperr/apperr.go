package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 是错误的稳定标识，调用方据此映射用户可见的提示，不依赖字符串匹配。
type Code string

const (
	// --- 输入错误 ---
	CodeInvalidComparison Code = "INVALID_COMPARISON"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeMalformedKey      Code = "MALFORMED_KEY"

	// --- 冲突 ---
	CodeDuplicateComparison Code = "DUPLICATE_COMPARISON"

	// --- 引用错误 ---
	CodeItemNotFound Code = "ITEM_NOT_FOUND"

	// --- 授权前置条件 ---
	CodeCommentNotAllowed Code = "COMMENT_NOT_ALLOWED"

	// --- 瞬时错误 ---
	CodeRetryExhausted Code = "RETRY_EXHAUSTED"
)

// Error 是带有稳定Code的业务错误
type Error struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Cause     error                  `json:"-"`
}

// New 创建一个新的业务错误
func New(code Code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: code == CodeRetryExhausted,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithCause 附加底层原因
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail 附加一项上下文信息
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is 按Code比较，使 errors.Is(err, apperr.ErrDuplicateComparison) 可用
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// 用于 errors.Is 判断的哨兵值
var (
	ErrInvalidComparison   = New(CodeInvalidComparison, "无效的对决提交")
	ErrValidation          = New(CodeValidation, "请求参数无效")
	ErrMalformedKey        = New(CodeMalformedKey, "无效的配对键")
	ErrDuplicateComparison = New(CodeDuplicateComparison, "你已经对这组对决做出过选择")
	ErrItemNotFound        = New(CodeItemNotFound, "找不到对应的条目")
	ErrCommentNotAllowed   = New(CodeCommentNotAllowed, "需要先对这组对决做出选择才能评论")
	ErrRetryExhausted      = New(CodeRetryExhausted, "服务繁忙，请稍后重试")
)

// CodeOf 提取错误链中的Code，非业务错误返回空字符串
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus 把错误映射为HTTP状态码
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidComparison, CodeValidation, CodeMalformedKey:
		return http.StatusBadRequest
	case CodeDuplicateComparison:
		return http.StatusConflict
	case CodeItemNotFound:
		return http.StatusNotFound
	case CodeCommentNotAllowed:
		return http.StatusForbidden
	case CodeRetryExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
