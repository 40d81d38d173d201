// Package types provides HTTP error type definitions.
package types

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// 错误码
const (
	ErrInvalidArgument   = "INVALID_ARGUMENT"
	ErrNotFound          = "NOT_FOUND"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInternal          = "INTERNAL"

	// 握手相关
	ErrPeerUnreachable    = "PEER_UNREACHABLE"    // 拨号或读写失败，可重试
	ErrHandshakeRejected  = "HANDSHAKE_REJECTED"  // 对端地址或签名验证失败
	ErrHandshakeDuplicate = "HANDSHAKE_DUPLICATE" // 与该对端的握手已完成或进行中
	ErrHandshakeMalformed = "HANDSHAKE_MALFORMED" // 对端消息无法解码或缺失字段
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithRequestID 添加请求ID
func (r *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	r.Error.RequestID = requestID
	return r
}
