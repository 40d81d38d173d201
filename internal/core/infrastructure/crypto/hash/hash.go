package hash

import (
	"golang.org/x/crypto/sha3"

	cryptointf "github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
)

// 确保HashService实现了cryptointf.HashManager接口
var _ cryptointf.HashManager = (*HashService)(nil)

// Size Keccak-256 输出长度
const Size = 32

// HashService 提供哈希计算功能
type HashService struct{}

// NewHashService 创建新的哈希服务
func NewHashService() *HashService {
	return &HashService{}
}

// Keccak256 计算拼接数据的 Keccak-256
func (hs *HashService) Keccak256(data ...[]byte) []byte {
	return Keccak256(data...)
}

// Keccak256 计算拼接数据的 Legacy Keccak-256（以太坊使用的变体，而非 NIST SHA3-256）
func Keccak256(data ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}
