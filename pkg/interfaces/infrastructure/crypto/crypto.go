// Package crypto 定义链身份相关的密码学接口
//
// 链身份为 secp256k1 密钥，地址为以太坊风格的 20 字节地址。
// 签名统一采用 EIP-191 personal-message 规则，输出 65 字节 r‖s‖v。
package crypto

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
)

// HashManager 哈希计算接口
type HashManager interface {
	// Keccak256 计算拼接数据的 Legacy Keccak-256
	Keccak256(data ...[]byte) []byte
}

// Signer 链身份签名器
// 实现必须可被多个握手 goroutine 并发调用
type Signer interface {
	// Sign 对数据做 EIP-191 personal-message 签名，返回 65 字节 r‖s‖v（v ∈ {27,28}）
	Sign(data []byte) ([]byte, error)

	// PublicKey 返回签名公钥
	PublicKey() (*ecdsa.PublicKey, error)

	// EthereumAddress 返回签名者的 20 字节链地址
	EthereumAddress() (common.Address, error)
}

// Recoverer 从签名恢复签名者
type Recoverer interface {
	// RecoverAddress 按 EIP-191 规则从签名和原始数据恢复链地址
	RecoverAddress(signature, data []byte) (common.Address, error)
}
