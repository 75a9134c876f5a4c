// Package apperr 业务错误分类：在检测点抛出带类型的错误，由边界统一翻译为响应信封。
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"user-directory/internal/domain"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindAlreadyExists
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindConflict:
		return "concurrency_conflict"
	default:
		return "unknown"
	}
}

// Detail 单条结构化错误（冲突字段、缺失 ID、批量失败项）
type Detail struct {
	Field  string `json:"field,omitempty"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (d Detail) String() string {
	if d.Field == "" {
		return d.Value + ": " + d.Reason
	}
	return d.Field + "=" + d.Value + ": " + d.Reason
}

type Error struct {
	Kind    Kind
	Msg     string
	Details []Detail
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for i, d := range e.Details {
		if i == 0 {
			b.WriteString(" [")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(d.String())
		if i == len(e.Details)-1 {
			b.WriteString("]")
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(msg string, details ...Detail) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Details: details}
}

func NotFound(msg string, details ...Detail) *Error {
	return &Error{Kind: KindNotFound, Msg: msg, Details: details}
}

func AlreadyExists(msg string, details ...Detail) *Error {
	return &Error{Kind: KindAlreadyExists, Msg: msg, Details: details}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

func Unknown(msg string, err error) *Error {
	return &Error{Kind: KindUnknown, Msg: msg, Err: err}
}

// Unknownf 存储报告“无行变化”且无更具体原因时使用
func Unknownf(format string, args ...any) *Error {
	return &Error{Kind: KindUnknown, Msg: fmt.Sprintf(format, args...)}
}

// KindOf 分类任意错误；仓储冒泡的哨兵错误在这里归类
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, domain.ErrDuplicateKey):
		return KindAlreadyExists
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return KindConflict
	}
	return KindUnknown
}

// DetailsOf 取出结构化明细（非 *Error 时为空）
func DetailsOf(err error) []Detail {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
