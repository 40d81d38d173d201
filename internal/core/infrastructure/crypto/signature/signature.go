package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	cryptointf "github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
)

// 确保实现了接口
var (
	_ cryptointf.Signer    = (*EthSigner)(nil)
	_ cryptointf.Recoverer = (*Recoverer)(nil)
)

// 错误定义
var (
	ErrInvalidSignature       = errors.New("无效的签名")
	ErrInvalidSignatureLength = errors.New("无效的签名长度")
	ErrInvalidRecoveryID      = errors.New("无效的恢复ID")
	ErrNilPrivateKey          = errors.New("私钥为空")
)

// 签名常量
const (
	// RecoverableSignatureLength r+s+v (可恢复签名)
	RecoverableSignatureLength = 65

	// recoveryIDOffset personal-sign 的 v 偏移（v = recid + 27）
	recoveryIDOffset = 27
)

// EthSigner 基于 secp256k1 私钥的 EIP-191 签名器
//
// crypto.Sign 不持有可变状态，私钥只读，因此 EthSigner 可被并发使用。
type EthSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewEthSigner 创建签名器
func NewEthSigner(key *ecdsa.PrivateKey) (*EthSigner, error) {
	if key == nil {
		return nil, ErrNilPrivateKey
	}
	return &EthSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Sign 对数据做 personal-message 签名，返回 r‖s‖v，v ∈ {27,28}
func (s *EthSigner) Sign(data []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), s.key)
	if err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}
	sig[64] += recoveryIDOffset
	return sig, nil
}

// PublicKey 返回签名公钥
func (s *EthSigner) PublicKey() (*ecdsa.PublicKey, error) {
	return &s.key.PublicKey, nil
}

// EthereumAddress 返回签名者的链地址
func (s *EthSigner) EthereumAddress() (common.Address, error) {
	return s.address, nil
}

// Recoverer 从 personal-message 签名恢复签名者
type Recoverer struct{}

// NewRecoverer 创建恢复器
func NewRecoverer() *Recoverer {
	return &Recoverer{}
}

// RecoverPublicKey 恢复签名公钥
// v 接受 0/1 与 27/28 两种写法
func (r *Recoverer) RecoverPublicKey(signature, data []byte) (*ecdsa.PublicKey, error) {
	if len(signature) != RecoverableSignatureLength {
		return nil, ErrInvalidSignatureLength
	}

	sig := make([]byte, RecoverableSignatureLength)
	copy(sig, signature)
	if sig[64] >= recoveryIDOffset {
		sig[64] -= recoveryIDOffset
	}
	if sig[64] > 1 {
		return nil, ErrInvalidRecoveryID
	}

	pub, err := crypto.SigToPub(accounts.TextHash(data), sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub, nil
}

// RecoverAddress 恢复签名者链地址
func (r *Recoverer) RecoverAddress(signature, data []byte) (common.Address, error) {
	pub, err := r.RecoverPublicKey(signature, data)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
