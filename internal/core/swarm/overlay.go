// Package swarm 实现 Swarm 覆盖网络地址
//
// 覆盖地址（overlay）由链身份地址、网络ID与可选 nonce 确定性推导：
//
//	overlay = Keccak256(chain[20] ‖ LE64(networkID) ‖ nonce[32])
//
// 未提供 nonce 时最后 32 字节全为零。
package swarm

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/hash"
)

const (
	// OverlaySize 覆盖地址长度
	OverlaySize = hash.Size

	// NonceSize nonce 长度
	NonceSize = 32

	// ChainAddressSize 链地址长度
	ChainAddressSize = common.AddressLength

	// MaxPO 最大邻近度
	MaxPO = OverlaySize*8 - 1
)

var (
	// ErrInvalidOverlayLength 覆盖地址长度错误
	ErrInvalidOverlayLength = errors.New("invalid overlay length")
	// ErrInvalidNonceLength nonce 长度错误
	ErrInvalidNonceLength = errors.New("invalid nonce length")
)

// ZeroOverlay 全零覆盖地址
func ZeroOverlay() OverlayAddress { return OverlayAddress{} }

// ReplicasOwner 副本块的固定所有者地址，每次返回独立副本
func ReplicasOwner() common.Address {
	return common.Address{
		0xDC, 0x5b, 0x20, 0x84, 0x7F, 0x43, 0xd6, 0x79, 0x28, 0xF4,
		0x9C, 0xd4, 0xf8, 0x5D, 0x69, 0x6b, 0x5A, 0x76, 0x17, 0xB5,
	}
}

// OverlayAddress 32 字节覆盖地址
type OverlayAddress [OverlaySize]byte

// Nonce 32 字节 nonce
type Nonce [NonceSize]byte

// DeriveOverlay 推导覆盖地址
// nonce 为 nil 时使用 32 字节零值
func DeriveOverlay(chain common.Address, networkID uint64, nonce *Nonce) OverlayAddress {
	var data [ChainAddressSize + 8 + NonceSize]byte
	copy(data[:ChainAddressSize], chain.Bytes())
	binary.LittleEndian.PutUint64(data[ChainAddressSize:ChainAddressSize+8], networkID)
	if nonce != nil {
		copy(data[ChainAddressSize+8:], nonce[:])
	}

	var overlay OverlayAddress
	copy(overlay[:], hash.Keccak256(data[:]))
	return overlay
}

// NewOverlayAddress 从字节构造覆盖地址
func NewOverlayAddress(b []byte) (OverlayAddress, error) {
	var o OverlayAddress
	if len(b) != OverlaySize {
		return o, fmt.Errorf("%w: %d", ErrInvalidOverlayLength, len(b))
	}
	copy(o[:], b)
	return o, nil
}

// ParseHexOverlay 解析十六进制覆盖地址（可带 0x 前缀）
func ParseHexOverlay(s string) (OverlayAddress, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return OverlayAddress{}, fmt.Errorf("%w: %v", ErrInvalidOverlayLength, err)
	}
	return NewOverlayAddress(b)
}

// Bytes 返回字节副本
func (o OverlayAddress) Bytes() []byte {
	b := make([]byte, OverlaySize)
	copy(b, o[:])
	return b
}

// String 返回不带前缀的十六进制表示
func (o OverlayAddress) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero 是否为全零地址
func (o OverlayAddress) IsZero() bool {
	return o == OverlayAddress{}
}

// MarshalJSON 编码为十六进制字符串
func (o OverlayAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON 从十六进制字符串解码
func (o *OverlayAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseHexOverlay(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Proximity 返回两个覆盖地址的邻近度（公共前缀比特数），最大为 MaxPO
func Proximity(one, other OverlayAddress) uint8 {
	for i := 0; i < OverlaySize; i++ {
		if x := one[i] ^ other[i]; x != 0 {
			return uint8(i*8 + bits.LeadingZeros8(x))
		}
	}
	return MaxPO
}

// NewNonce 从字节构造 nonce
// 空字节返回 nil（使用零 nonce 推导）
func NewNonce(b []byte) (*Nonce, error) {
	switch len(b) {
	case 0:
		return nil, nil
	case NonceSize:
		var n Nonce
		copy(n[:], b)
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidNonceLength, len(b))
	}
}

// ParseHexNonce 解析十六进制 nonce（可带 0x 前缀），空串返回 nil
func ParseHexNonce(s string) (*Nonce, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNonceLength, err)
	}
	return NewNonce(b)
}

// Bytes 返回线上传输使用的 32 字节表示，nil 返回全零
func (n *Nonce) Bytes() []byte {
	b := make([]byte, NonceSize)
	if n != nil {
		copy(b, n[:])
	}
	return b
}

// String 返回十六进制表示
func (n *Nonce) String() string {
	return hex.EncodeToString(n.Bytes())
}
