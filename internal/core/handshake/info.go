package handshake

import (
	"encoding/hex"
	"encoding/json"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/weisyn/handshake/internal/core/swarm"
)

// Info 一次成功握手得到的对端信息
type Info struct {
	Address          *swarm.NodeAddress // 已验证的对端地址
	FullNode         bool
	WelcomeMessage   string
	NetworkID        uint64
	Nonce            []byte
	ObservedUnderlay ma.Multiaddr // 对端观察到的本节点地址
	Peer             peer.ID
	Role             Role
	State            State
	AttemptID        string
}

// LightString 轻节点标记
func (i *Info) LightString() string {
	if !i.FullNode {
		return " (light)"
	}
	return ""
}

type infoJSON struct {
	Address          *swarm.NodeAddress `json:"address"`
	FullNode         bool               `json:"full_node"`
	WelcomeMessage   string             `json:"welcome_message,omitempty"`
	NetworkID        uint64             `json:"network_id"`
	Nonce            string             `json:"nonce"`
	ObservedUnderlay string             `json:"observed_underlay,omitempty"`
	Peer             string             `json:"peer"`
	Role             Role               `json:"role"`
	State            string             `json:"state"`
	AttemptID        string             `json:"attempt_id"`
}

// MarshalJSON 编码为 JSON
func (i *Info) MarshalJSON() ([]byte, error) {
	v := infoJSON{
		Address:        i.Address,
		FullNode:       i.FullNode,
		WelcomeMessage: i.WelcomeMessage,
		NetworkID:      i.NetworkID,
		Nonce:          hex.EncodeToString(i.Nonce),
		Peer:           i.Peer.String(),
		Role:           i.Role,
		State:          i.State.String(),
		AttemptID:      i.AttemptID,
	}
	if i.ObservedUnderlay != nil {
		v.ObservedUnderlay = i.ObservedUnderlay.String()
	}
	return json.Marshal(v)
}

// Failure 握手失败事件负载
type Failure struct {
	Peer peer.ID
	Role Role
	Kind Kind // 非 *Error 时为零值
	Err  error
}
