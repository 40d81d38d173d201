// Package crypto 提供加密相关功能
package crypto

import (
	"go.uber.org/fx"

	config "github.com/weisyn/handshake/pkg/interfaces/config"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
	log "github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// CryptoParams 定义加密模块的依赖参数
type CryptoParams struct {
	fx.In

	Provider config.Provider // 配置提供者
	Logger   log.Logger      `optional:"true"` // 日志记录器
}

// CryptoOutput 定义加密模块的输出结构
type CryptoOutput struct {
	fx.Out

	HashManager crypto.HashManager
	Signer      crypto.Signer
	Recoverer   crypto.Recoverer
}

// Module 返回加密模块
func Module() fx.Option {
	return fx.Module("crypto",
		fx.Provide(ProvideCryptoServices),
	)
}

// ProvideCryptoServices 提供加密服务
func ProvideCryptoServices(params CryptoParams) (CryptoOutput, error) {
	var logger log.Logger
	if params.Logger != nil {
		logger = params.Logger.With("module", "crypto")
	}

	serviceOutput, err := CreateCryptoServices(ServiceInput{
		ChainKeyFile: params.Provider.GetHandshake().ChainKeyFile,
		Logger:       logger,
	})
	if err != nil {
		return CryptoOutput{}, err
	}

	return CryptoOutput{
		HashManager: serviceOutput.HashManager,
		Signer:      serviceOutput.Signer,
		Recoverer:   serviceOutput.Recoverer,
	}, nil
}
