package handshake

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	handshakeconfig "github.com/weisyn/handshake/internal/config/handshake"
	"github.com/weisyn/handshake/internal/core/swarm"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/storage"
)

// NonceStoreKey 持久化 nonce 在状态存储中的键
var NonceStoreKey = []byte("handshake/nonce")

// ResolveNonce 按配置确定本节点 nonce
//
// 显式 hex nonce 优先；其次按策略：zero 返回 nil（推导时按 32 个零字节处理），
// persistent 从存储读取，不存在时生成随机值并写入。
func ResolveNonce(ctx context.Context, opts *handshakeconfig.HandshakeOptions, store storage.KVStore) (*swarm.Nonce, error) {
	if opts == nil {
		return nil, nil
	}
	if opts.Nonce != "" {
		nonce, err := swarm.ParseHexNonce(opts.Nonce)
		if err != nil {
			return nil, fmt.Errorf("parse configured nonce: %w", err)
		}
		return nonce, nil
	}

	switch opts.NoncePolicy {
	case "", handshakeconfig.NoncePolicyZero:
		return nil, nil
	case handshakeconfig.NoncePolicyPersistent:
		return loadOrCreateNonce(ctx, store)
	default:
		return nil, fmt.Errorf("unknown nonce policy %q", opts.NoncePolicy)
	}
}

func loadOrCreateNonce(ctx context.Context, store storage.KVStore) (*swarm.Nonce, error) {
	if store == nil {
		return nil, errors.New("persistent nonce policy requires a state store")
	}

	raw, err := store.Get(ctx, NonceStoreKey)
	switch {
	case err == nil:
		nonce, err := swarm.NewNonce(raw)
		if err != nil {
			return nil, fmt.Errorf("stored nonce: %w", err)
		}
		if nonce == nil {
			return nil, fmt.Errorf("stored nonce: %w", swarm.ErrInvalidNonceLength)
		}
		return nonce, nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("read stored nonce: %w", err)
	}

	var nonce swarm.Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	if err := store.Set(ctx, NonceStoreKey, nonce[:]); err != nil {
		return nil, fmt.Errorf("store nonce: %w", err)
	}
	return &nonce, nil
}
