package response

import "net/http"

// 状态码直接使用 HTTP 语义
const (
	CodeOK              = http.StatusOK
	CodeCreated         = http.StatusCreated
	CodeMultiStatus     = http.StatusMultiStatus
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooLarge        = http.StatusRequestEntityTooLarge
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeServerError     = http.StatusInternalServerError
	CodeUnavailable     = http.StatusServiceUnavailable
	CodeTimeout         = http.StatusGatewayTimeout
)

// 面向调用方的固定文案
const (
	MsgSuccess           = "Success"
	MsgValidationSuccess = "Validation Successful"
	MsgValidationFailed  = "Validation Failed"
	MsgAllUsersUpdated   = "All users updated successfully."
	MsgUsersNotExist     = "One or more users do not exist! Please check the details of the user(s) and try again."
	MsgUsersAlreadyExist = "One or more users already exist! Please check the details of the user(s) and try again."
	MsgInvalidInput      = "An error occurred due to invalid input fields. Please check the entered fields and ensure they meet the required criteria."
	MsgConcurrency       = "The user(s) changed while the request was processed. Please reload and try again."
	MsgServerWrong       = "Something went wrong on the server. Please try again later."
	MsgAlreadyExist      = "already exists in the system"
	MsgNotExist          = "does not exist in the system"
)

// CodeMsgMap 用于集中管理 code - msg
var CodeMsgMap = map[int]string{
	CodeOK:              "OK",
	CodeCreated:         "Created",
	CodeMultiStatus:     "Multi-Status",
	CodeBadRequest:      MsgInvalidInput,
	CodeUnauthorized:    "Unauthorized",
	CodeForbidden:       "Forbidden",
	CodeNotFound:        MsgUsersNotExist,
	CodeConflict:        MsgUsersAlreadyExist,
	CodeTooLarge:        "Request Entity Too Large",
	CodeTooManyRequests: "Too Many Requests",
	CodeServerError:     MsgServerWrong,
	CodeUnavailable:     "Service Unavailable",
	CodeTimeout:         "Timeout",
}
