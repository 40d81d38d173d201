// Package storage 定义节点状态存储接口
package storage

import (
	"context"
	"errors"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("key not found")

// KVStore 键值存储接口
// 实现：internal/core/infrastructure/storage/badger（持久化）、storage/memory（测试与临时节点）
type KVStore interface {
	// Get 读取键值，不存在时返回 ErrNotFound
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 写入键值
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除键
	Delete(ctx context.Context, key []byte) error

	// Exists 判断键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// PrefixScan 按前缀扫描
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// Close 关闭存储
	Close() error
}
