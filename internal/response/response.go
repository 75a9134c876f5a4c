package response

import (
	"user-directory/internal/apperr"
)

// Envelope 服务层统一返回：状态码 + 值，与传输层解耦
type Envelope struct {
	StatusCode int `json:"statusCode"`
	Value      any `json:"value"`
}

// ErrorDetails 失败时的 value
type ErrorDetails struct {
	Message string `json:"message"`
	Errors  []any  `json:"errors"`
}

// New 构造函数
func New(code int, value any) Envelope {
	return Envelope{StatusCode: code, Value: value}
}

func OK(value any) Envelope { return New(CodeOK, value) }

func Created(value any) Envelope { return New(CodeCreated, value) }

func MultiStatus(value any) Envelope { return New(CodeMultiStatus, value) }

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string, errs ...any) Envelope {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	if errs == nil {
		errs = []any{}
	}
	return New(code, ErrorDetails{Message: msg, Errors: errs})
}

// StatusOf 错误类别 → 状态码
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindInvalidInput:
		return CodeBadRequest
	case apperr.KindNotFound:
		return CodeNotFound
	case apperr.KindAlreadyExists, apperr.KindConflict:
		return CodeConflict
	default:
		return CodeServerError
	}
}

// FromError 边界处把任意错误翻译为信封；明细保持结构化
func FromError(err error) Envelope {
	kind := apperr.KindOf(err)
	code := StatusOf(kind)

	msg := ""
	if kind == apperr.KindConflict {
		msg = MsgConcurrency
	}

	details := apperr.DetailsOf(err)
	errs := make([]any, 0, len(details)+1)
	for _, d := range details {
		errs = append(errs, d)
	}
	if len(errs) == 0 && kind != apperr.KindUnknown {
		errs = append(errs, err.Error())
	}
	return Error(code, msg, errs...)
}
