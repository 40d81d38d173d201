// Package handlers provides HTTP handlers of the node debug API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/handshake/internal/api/http/middleware"
	"github.com/weisyn/handshake/internal/api/http/types"
	"github.com/weisyn/handshake/internal/core/handshake"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, types.NewSuccessResponse(data).WithRequestID(middleware.GetRequestID(c)))
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, types.NewErrorResponse(code, message, details).WithRequestID(middleware.GetRequestID(c)))
}

// handshakeStatus 将握手错误映射为 HTTP 状态与错误码
func handshakeStatus(err error) (int, string) {
	if errors.Is(err, handshake.ErrHandshakeDuplicate) {
		return http.StatusConflict, types.ErrHandshakeDuplicate
	}
	kind, ok := handshake.KindOf(err)
	if !ok {
		return http.StatusBadRequest, types.ErrInvalidArgument
	}
	switch kind {
	case handshake.KindTransport:
		return http.StatusBadGateway, types.ErrPeerUnreachable
	case handshake.KindVerification:
		return http.StatusUnprocessableEntity, types.ErrHandshakeRejected
	case handshake.KindDecode, handshake.KindProtocol:
		return http.StatusUnprocessableEntity, types.ErrHandshakeMalformed
	default:
		return http.StatusInternalServerError, types.ErrInternal
	}
}
