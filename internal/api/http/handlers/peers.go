package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/handshake/internal/api/http/types"
	"github.com/weisyn/handshake/internal/core/addressbook"
	"github.com/weisyn/handshake/internal/core/swarm"
)

// PeerBook 地址簿只读视图
type PeerBook interface {
	List() []addressbook.Entry
	Get(overlay swarm.OverlayAddress) (addressbook.Entry, error)
	ClosestTo(target swarm.OverlayAddress, n int) []addressbook.Entry
}

// PeersHandler 已握手对端查询
type PeersHandler struct {
	book PeerBook
}

// NewPeersHandler 创建对端处理器
func NewPeersHandler(book PeerBook) *PeersHandler {
	return &PeersHandler{book: book}
}

// RegisterRoutes 注册对端路由
func (h *PeersHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/peers", h.ListPeers)
	r.GET("/peers/:overlay", h.GetPeer)
	r.GET("/peers/:overlay/closest", h.Closest)
}

// ListPeers 列出地址簿全部条目
func (h *PeersHandler) ListPeers(c *gin.Context) {
	peers := h.book.List()
	respondOK(c, types.PeersResponse{Peers: peers, Total: len(peers)})
}

// GetPeer 按 overlay 查询
func (h *PeersHandler) GetPeer(c *gin.Context) {
	overlay, err := swarm.ParseHexOverlay(c.Param("overlay"))
	if err != nil {
		respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid overlay", err.Error())
		return
	}
	entry, err := h.book.Get(overlay)
	if errors.Is(err, addressbook.ErrNotFound) {
		respondError(c, http.StatusNotFound, types.ErrNotFound, "peer not found", nil)
		return
	}
	respondOK(c, entry)
}

// Closest 返回距离给定 overlay 最近的对端，limit 默认 8
func (h *PeersHandler) Closest(c *gin.Context) {
	overlay, err := swarm.ParseHexOverlay(c.Param("overlay"))
	if err != nil {
		respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid overlay", err.Error())
		return
	}
	limit := 8
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 {
			respondError(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid limit", s)
			return
		}
	}
	peers := h.book.ClosestTo(overlay, limit)
	respondOK(c, types.PeersResponse{Peers: peers, Total: len(peers)})
}
