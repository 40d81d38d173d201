package handlers

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/weisyn/handshake/internal/api/http/types"
	"github.com/weisyn/handshake/internal/core/handshake"
	"github.com/weisyn/handshake/internal/core/swarm"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// Identity 本节点握手身份
type Identity interface {
	Overlay() swarm.OverlayAddress
	ChainAddress() common.Address
	NetworkID() uint64
	Nonce() []byte
	FullNode() bool
	GetWelcomeMessage() string
	SetWelcomeMessage(msg string) error
}

// Listener 本节点监听地址
type Listener interface {
	ID() peer.ID
	ListenAddrs() []ma.Multiaddr
}

// Connector 主动发起握手
type Connector interface {
	Connect(ctx context.Context, addr ma.Multiaddr) (*handshake.Info, error)
}

// NodeHandler 本节点身份与拨号端点
type NodeHandler struct {
	identity  Identity
	listener  Listener
	connector Connector
	logger    log.Logger
}

// NewNodeHandler 创建节点处理器
func NewNodeHandler(identity Identity, listener Listener, connector Connector, logger log.Logger) *NodeHandler {
	return &NodeHandler{identity: identity, listener: listener, connector: connector, logger: logger}
}

// RegisterRoutes 注册节点路由
func (h *NodeHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/addresses", h.GetAddresses)
	r.POST("/connect", h.Connect)
	r.GET("/welcome-message", h.GetWelcomeMessage)
	r.POST("/welcome-message", h.SetWelcomeMessage)
}

// GetAddresses 返回 overlay、underlay 与链上地址
func (h *NodeHandler) GetAddresses(c *gin.Context) {
	underlays := make([]string, 0)
	if h.listener != nil {
		suffix := "/p2p/" + h.listener.ID().String()
		for _, a := range h.listener.ListenAddrs() {
			underlays = append(underlays, a.String()+suffix)
		}
	}
	respondOK(c, types.AddressesResponse{
		Overlay:        h.identity.Overlay(),
		Underlay:       underlays,
		Ethereum:       h.identity.ChainAddress().Hex(),
		NetworkID:      h.identity.NetworkID(),
		Nonce:          hex.EncodeToString(h.identity.Nonce()),
		FullNode:       h.identity.FullNode(),
		WelcomeMessage: h.identity.GetWelcomeMessage(),
	})
}

// Connect 拨号并握手
//
// POST /connect {"address": "/ip4/.../tcp/.../p2p/<peer>"}
func (h *NodeHandler) Connect(c *gin.Context) {
	var req types.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid request body", err.Error())
		return
	}
	addr, err := ma.NewMultiaddr(req.Address)
	if err != nil {
		respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid multiaddr", err.Error())
		return
	}

	info, err := h.connector.Connect(c.Request.Context(), addr)
	if err != nil {
		status, code := handshakeStatus(err)
		h.logger.Warnf("调试接口拨号失败 addr=%s err=%v", addr, err)
		details := map[string]interface{}{"retryable": handshake.IsRetryable(err)}
		respondError(c, status, code, err.Error(), details)
		return
	}
	respondOK(c, info)
}

// GetWelcomeMessage 当前欢迎消息
func (h *NodeHandler) GetWelcomeMessage(c *gin.Context) {
	respondOK(c, types.WelcomeMessageRequest{WelcomeMessage: h.identity.GetWelcomeMessage()})
}

// SetWelcomeMessage 设置后续握手携带的欢迎消息
func (h *NodeHandler) SetWelcomeMessage(c *gin.Context) {
	var req types.WelcomeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid request body", err.Error())
		return
	}
	if err := h.identity.SetWelcomeMessage(req.WelcomeMessage); err != nil {
		if errors.Is(err, handshake.ErrWelcomeMessageLength) {
			respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, types.ErrInternal, err.Error(), nil)
		return
	}
	respondOK(c, req)
}
