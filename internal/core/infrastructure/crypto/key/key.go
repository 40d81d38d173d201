package key

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// 错误定义
var (
	ErrInvalidPrivateKey = errors.New("无效的私钥")
	ErrKeyFileNotFound   = errors.New("私钥文件不存在")
)

// PrivateKeyLength secp256k1 私钥长度
const PrivateKeyLength = 32

// KeyManager 提供链身份密钥管理功能
//
// 私钥文件格式与 go-ethereum 的 crypto.SaveECDSA 一致：64 个十六进制字符，无 0x 前缀。
type KeyManager struct{}

// NewKeyManager 创建新的密钥管理器
func NewKeyManager() *KeyManager {
	return &KeyManager{}
}

// Generate 生成新的 secp256k1 私钥
func (km *KeyManager) Generate() (*ecdsa.PrivateKey, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("生成私钥失败: %w", err)
	}
	return pk, nil
}

// FromHex 解析十六进制私钥（允许 0x 前缀）
func (km *KeyManager) FromHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	pk, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return pk, nil
}

// Load 从文件读取私钥
func (km *KeyManager) Load(path string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyFileNotFound, path)
		}
		return nil, fmt.Errorf("读取私钥文件失败: %w", err)
	}
	pk, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return pk, nil
}

// Save 将私钥写入文件（权限 0600），必要时创建目录
func (km *KeyManager) Save(path string, pk *ecdsa.PrivateKey) error {
	if pk == nil {
		return ErrInvalidPrivateKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("创建私钥目录失败: %w", err)
	}
	if err := crypto.SaveECDSA(path, pk); err != nil {
		return fmt.Errorf("保存私钥失败: %w", err)
	}
	return nil
}

// LoadOrGenerate 读取私钥文件，不存在时生成并保存
// 返回的 bool 表示是否为新生成的密钥
func (km *KeyManager) LoadOrGenerate(path string) (*ecdsa.PrivateKey, bool, error) {
	pk, err := km.Load(path)
	if err == nil {
		return pk, false, nil
	}
	if !errors.Is(err, ErrKeyFileNotFound) {
		return nil, false, err
	}

	pk, err = km.Generate()
	if err != nil {
		return nil, false, err
	}
	if err := km.Save(path, pk); err != nil {
		return nil, false, err
	}
	return pk, true, nil
}
