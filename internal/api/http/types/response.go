// Package types provides HTTP response type definitions.
package types

import (
	"github.com/weisyn/handshake/internal/core/addressbook"
	"github.com/weisyn/handshake/internal/core/swarm"
)

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{Data: data}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"` // ok
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// AddressesResponse 本节点地址信息
type AddressesResponse struct {
	Overlay        swarm.OverlayAddress `json:"overlay"`
	Underlay       []string             `json:"underlay"`
	Ethereum       string               `json:"ethereum"`
	NetworkID      uint64               `json:"network_id"`
	Nonce          string               `json:"nonce"`
	FullNode       bool                 `json:"full_node"`
	WelcomeMessage string               `json:"welcome_message,omitempty"`
}

// PeersResponse 地址簿列表
type PeersResponse struct {
	Peers []addressbook.Entry `json:"peers"`
	Total int                 `json:"total"`
}

// ConnectRequest 拨号请求
type ConnectRequest struct {
	Address string `json:"address" binding:"required"` // 含 /p2p/<peer> 的 multiaddr
}

// WelcomeMessageRequest 设置欢迎消息
type WelcomeMessageRequest struct {
	WelcomeMessage string `json:"welcome_message"`
}
