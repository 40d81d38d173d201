package host

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	noise "github.com/libp2p/go-libp2p/p2p/security/noise"
	tls "github.com/libp2p/go-libp2p/p2p/security/tls"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
)

// 安全与身份：
// - 安全通道按配置启用 Noise / TLS，均未启用时使用 libp2p 默认组合；
// - libp2p 身份与链身份相互独立，仅用于传输层寻址与加密。

// withSecurityOptions 根据配置构建安全层选项
func withSecurityOptions(cfg *nodeconfig.NodeOptions) []libp2p.Option {
	if cfg == nil {
		return []libp2p.Option{libp2p.DefaultSecurity}
	}
	var opts []libp2p.Option
	if cfg.Host.Security.EnableNoise {
		opts = append(opts, libp2p.Security(noise.ID, noise.New))
	}
	if cfg.Host.Security.EnableTLS {
		opts = append(opts, libp2p.Security(tls.ID, tls.New))
	}
	if len(opts) == 0 {
		return []libp2p.Option{libp2p.DefaultSecurity}
	}
	return opts
}

// withIdentityOptions 根据配置构建身份选项
//   - 未配置密钥文件：返回空，由 libp2p 生成临时身份
//   - 文件存在：读取 base64 编码的私钥
//   - 文件不存在：生成 Ed25519 身份并持久化
func withIdentityOptions(cfg *nodeconfig.NodeOptions) ([]libp2p.Option, error) {
	if cfg == nil {
		return nil, nil
	}
	keyPath := strings.TrimSpace(cfg.Host.Identity.KeyFile)
	if keyPath == "" {
		return nil, nil
	}

	priv, err := LoadOrCreateIdentity(keyPath)
	if err != nil {
		return nil, err
	}
	return []libp2p.Option{libp2p.Identity(priv)}, nil
}

// LoadOrCreateIdentity 从文件加载 libp2p 私钥，文件不存在时生成并保存
func LoadOrCreateIdentity(keyPath string) (crypto.PrivKey, error) {
	b, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		priv, ok := decodeAndUnmarshalLibp2pPriv(strings.TrimSpace(string(b)))
		if !ok {
			return nil, fmt.Errorf("libp2p 身份文件格式无效: %s", keyPath)
		}
		return priv, nil
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取 libp2p 身份文件失败: %w", err)
	}

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("生成 libp2p 身份失败: %w", err)
	}
	if err := persistLibp2pPrivToFile(priv, keyPath); err != nil {
		return nil, fmt.Errorf("保存 libp2p 身份失败: %w", err)
	}
	return priv, nil
}

// decodeAndUnmarshalLibp2pPriv 从base64字符串解码并反序列化libp2p私钥
func decodeAndUnmarshalLibp2pPriv(b64 string) (crypto.PrivKey, bool) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	priv, err := crypto.UnmarshalPrivateKey(data)
	if err != nil {
		return nil, false
	}
	return priv, true
}

// persistLibp2pPrivToFile 将libp2p私钥(base64-encoded MarshalPrivateKey)写入文件
func persistLibp2pPrivToFile(priv crypto.PrivKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(raw)), 0o600)
}
