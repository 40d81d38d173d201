// Package crypto 提供加密服务工厂实现
package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/hash"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/key"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// ServiceInput 定义加密服务工厂的输入参数
type ServiceInput struct {
	ChainKeyFile string     // 链身份私钥文件，为空时生成临时身份
	Logger       log.Logger // 日志记录器（可为 nil）
}

// ServiceOutput 定义加密服务工厂的输出结果
type ServiceOutput struct {
	HashManager crypto.HashManager
	Signer      crypto.Signer
	Recoverer   crypto.Recoverer
}

// CreateCryptoServices 创建加密服务
//
// 链身份加载规则：
//   - 配置了私钥文件：读取，文件不存在时生成并保存
//   - 未配置：生成仅存在于本次运行的临时身份
func CreateCryptoServices(input ServiceInput) (ServiceOutput, error) {
	pk, created, err := loadChainKey(key.NewKeyManager(), input.ChainKeyFile)
	if err != nil {
		return ServiceOutput{}, err
	}

	signer, err := signature.NewEthSigner(pk)
	if err != nil {
		return ServiceOutput{}, err
	}

	if input.Logger != nil {
		address, _ := signer.EthereumAddress()
		switch {
		case input.ChainKeyFile == "":
			input.Logger.Warnf("未配置链身份私钥文件，使用临时身份 address=%s", address.Hex())
		case created:
			input.Logger.Infof("已生成新的链身份 address=%s file=%s", address.Hex(), input.ChainKeyFile)
		default:
			input.Logger.Infof("已加载链身份 address=%s", address.Hex())
		}
	}

	return ServiceOutput{
		HashManager: hash.NewHashService(),
		Signer:      signer,
		Recoverer:   signature.NewRecoverer(),
	}, nil
}

// loadChainKey 按配置加载或生成链身份私钥
func loadChainKey(km *key.KeyManager, path string) (*ecdsa.PrivateKey, bool, error) {
	if path == "" {
		pk, err := km.Generate()
		return pk, true, err
	}

	pk, created, err := km.LoadOrGenerate(path)
	if err != nil {
		return nil, false, fmt.Errorf("加载链身份失败: %w", err)
	}
	return pk, created, nil
}
