package swarm

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
)

// SignaturePrefix 签名负载前缀
const SignaturePrefix = "bee-handshake-"

// SignatureSize 可恢复签名长度 r‖s‖v
const SignatureSize = 65

var (
	ErrSignatureLengthMismatch = errors.New("signature length mismatch")
	ErrSignatureMismatch       = errors.New("signature mismatch")
	ErrOverlayMismatch         = errors.New("overlay mismatch")
	ErrUnderlayDecodeFailed    = errors.New("underlay decode failed")

	// ErrSigning 本地签名失败
	ErrSigning = errors.New("signing failed")
)

// Signature 65 字节可恢复签名
type Signature []byte

// NodeAddress 节点在 Swarm 中的完整地址
//
// underlay 为物理地址，overlay 为拓扑地址，chain 为签名者链地址。
// 构造后不可修改，可在 goroutine 之间自由共享。
type NodeAddress struct {
	underlay ma.Multiaddr
	overlay  OverlayAddress
	chain    common.Address
}

// NewNodeAddress 构造并签名本节点地址
//
// 签名负载：
//
//	"bee-handshake-" ‖ underlay ‖ overlay[32] ‖ BE64(networkID)
//
// 推导使用小端 networkID，签名负载使用大端 networkID。
func NewNodeAddress(signer crypto.Signer, networkID uint64, nonce *Nonce, underlay ma.Multiaddr) (*NodeAddress, Signature, error) {
	if signer == nil {
		return nil, nil, fmt.Errorf("%w: nil signer", ErrSigning)
	}
	if underlay == nil || len(underlay.Bytes()) == 0 {
		return nil, nil, fmt.Errorf("%w: empty underlay", ErrSigning)
	}

	chain, err := signer.EthereumAddress()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	overlay := DeriveOverlay(chain, networkID, nonce)

	sig, err := signer.Sign(signedPayload(underlay.Bytes(), overlay[:], networkID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if len(sig) != SignatureSize {
		return nil, nil, fmt.Errorf("%w: signature length %d", ErrSigning, len(sig))
	}

	return &NodeAddress{
		underlay: underlay,
		overlay:  overlay,
		chain:    chain,
	}, Signature(sig), nil
}

// ParseNodeAddress 解析并验证对端声明的地址
//
// 校验顺序：
//  1. 签名长度，否则 ErrSignatureLengthMismatch
//  2. 以声明的 overlay 重建负载并恢复签名者，否则 ErrSignatureMismatch
//  3. validateOverlay 为真时，由恢复出的链地址重新推导 overlay 并比较，否则 ErrOverlayMismatch
//  4. 解码 underlay，否则 ErrUnderlayDecodeFailed
//
// 返回地址的 chain 始终为恢复出的签名者。
// validateOverlay 为假时接受未经绑定校验的 overlay 声明，签名恢复不会跳过。
func ParseNodeAddress(recoverer crypto.Recoverer, underlay, overlay, signature, nonce []byte, validateOverlay bool, networkID uint64) (*NodeAddress, error) {
	if len(signature) != SignatureSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrSignatureLengthMismatch, len(signature))
	}

	chain, err := recoverer.RecoverAddress(signature, signedPayload(underlay, overlay, networkID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	claimed, err := NewOverlayAddress(overlay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverlayMismatch, err)
	}

	if validateOverlay {
		n, err := NewNonce(nonce)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOverlayMismatch, err)
		}
		if expected := DeriveOverlay(chain, networkID, n); expected != claimed {
			return nil, fmt.Errorf("%w: claimed %s, derived %s", ErrOverlayMismatch, claimed, expected)
		}
	}

	if len(underlay) == 0 {
		return nil, fmt.Errorf("%w: empty underlay", ErrUnderlayDecodeFailed)
	}
	addr, err := ma.NewMultiaddrBytes(underlay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnderlayDecodeFailed, err)
	}

	return &NodeAddress{
		underlay: addr,
		overlay:  claimed,
		chain:    chain,
	}, nil
}

// signedPayload 构造签名负载
func signedPayload(underlay, overlay []byte, networkID uint64) []byte {
	data := make([]byte, 0, len(SignaturePrefix)+len(underlay)+len(overlay)+8)
	data = append(data, SignaturePrefix...)
	data = append(data, underlay...)
	data = append(data, overlay...)
	return binary.BigEndian.AppendUint64(data, networkID)
}

// Underlay 物理地址
func (a *NodeAddress) Underlay() ma.Multiaddr { return a.underlay }

// Overlay 拓扑地址
func (a *NodeAddress) Overlay() OverlayAddress { return a.overlay }

// Chain 链地址
func (a *NodeAddress) Chain() common.Address { return a.chain }

// Equal 比较两个地址的全部字段
func (a *NodeAddress) Equal(b *NodeAddress) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.overlay == b.overlay && a.chain == b.chain && a.underlay.Equal(b.underlay)
}

func (a *NodeAddress) String() string {
	return fmt.Sprintf("[Underlay: %s, Overlay: %s, Chain: %s]", a.underlay, a.overlay, a.chain.Hex())
}

type nodeAddressJSON struct {
	Underlay string         `json:"underlay"`
	Overlay  OverlayAddress `json:"overlay"`
	Chain    common.Address `json:"chain"`
}

// MarshalJSON 编码为 JSON
func (a *NodeAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeAddressJSON{
		Underlay: a.underlay.String(),
		Overlay:  a.overlay,
		Chain:    a.chain,
	})
}
