// Package addressbook 维护 overlay 地址到已验证节点地址的映射
//
// 条目只来源于握手成功事件，是本节点已知对端 overlay 与 underlay 关系的唯一来源。
// 仅保存在内存中，进程重启后重新通过握手建立。
package addressbook

import (
	"bytes"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/weisyn/handshake/internal/core/handshake"
	"github.com/weisyn/handshake/internal/core/swarm"
)

// ErrNotFound 地址簿中不存在该条目
var ErrNotFound = errors.New("addressbook: not found")

// Entry 地址簿条目
type Entry struct {
	Address        *swarm.NodeAddress `json:"address"`
	Peer           peer.ID            `json:"peer"`
	FullNode       bool               `json:"full_node"`
	WelcomeMessage string             `json:"welcome_message,omitempty"`
	Connected      bool               `json:"connected"`
	Proximity      uint8              `json:"proximity"` // 与本节点 overlay 的公共前缀位数
	AddedAt        time.Time          `json:"added_at"`
	VerifiedAt     time.Time          `json:"verified_at"` // 最近一次握手成功时间
}

// Book 线程安全的地址簿
type Book struct {
	self swarm.OverlayAddress
	now  func() time.Time

	mu      sync.RWMutex
	entries map[swarm.OverlayAddress]*Entry
	byPeer  map[peer.ID]swarm.OverlayAddress
}

// New 创建地址簿，self 为本节点 overlay
func New(self swarm.OverlayAddress) *Book {
	return &Book{
		self:    self,
		now:     time.Now,
		entries: make(map[swarm.OverlayAddress]*Entry),
		byPeer:  make(map[peer.ID]swarm.OverlayAddress),
	}
}

// Put 记录一次成功握手的结果
// 同一对端以新 overlay 重新握手时旧条目被替换
func (b *Book) Put(info handshake.Info) {
	if info.Address == nil {
		return
	}
	overlay := info.Address.Overlay()
	if overlay == b.self {
		return
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.byPeer[info.Peer]; ok && prev != overlay {
		delete(b.entries, prev)
	}

	e, ok := b.entries[overlay]
	if !ok {
		e = &Entry{AddedAt: now, Proximity: swarm.Proximity(b.self, overlay)}
		b.entries[overlay] = e
	} else if e.Peer != info.Peer {
		delete(b.byPeer, e.Peer)
	}
	e.Address = info.Address
	e.Peer = info.Peer
	e.FullNode = info.FullNode
	e.WelcomeMessage = info.WelcomeMessage
	e.Connected = true
	e.VerifiedAt = now
	b.byPeer[info.Peer] = overlay
}

// Get 按 overlay 查询
func (b *Book) Get(overlay swarm.OverlayAddress) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[overlay]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

// GetByPeer 按 PeerID 查询
func (b *Book) GetByPeer(id peer.ID) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	overlay, ok := b.byPeer[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *b.entries[overlay], nil
}

// MarkDisconnected 对端断开后保留地址，仅更新连接状态
func (b *Book) MarkDisconnected(id peer.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if overlay, ok := b.byPeer[id]; ok {
		b.entries[overlay].Connected = false
	}
}

// Remove 删除条目
func (b *Book) Remove(overlay swarm.OverlayAddress) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[overlay]
	if !ok {
		return ErrNotFound
	}
	delete(b.byPeer, e.Peer)
	delete(b.entries, overlay)
	return nil
}

// Len 条目数
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// List 返回全部条目，按与本节点的接近度降序
func (b *Book) List() []Entry {
	return b.ClosestTo(b.self, 0)
}

// ClosestTo 返回距离 target 最近的 n 个条目（XOR 距离升序），n <= 0 返回全部
func (b *Book) ClosestTo(target swarm.OverlayAddress, n int) []Entry {
	b.mu.RLock()
	sorter := &entrySorter{target: target, entries: make([]Entry, 0, len(b.entries))}
	for _, e := range b.entries {
		sorter.entries = append(sorter.entries, *e)
	}
	b.mu.RUnlock()

	sort.Sort(sorter)
	if n > 0 && n < len(sorter.entries) {
		return sorter.entries[:n]
	}
	return sorter.entries
}

// entrySorter 按到 target 的 XOR 距离排序
type entrySorter struct {
	target  swarm.OverlayAddress
	entries []Entry
}

func (s *entrySorter) Len() int      { return len(s.entries) }
func (s *entrySorter) Swap(i, j int) { s.entries[i], s.entries[j] = s.entries[j], s.entries[i] }
func (s *entrySorter) Less(i, j int) bool {
	di := xorDistance(s.entries[i].Address.Overlay(), s.target)
	dj := xorDistance(s.entries[j].Address.Overlay(), s.target)
	return bytes.Compare(di[:], dj[:]) < 0
}

func xorDistance(a, b swarm.OverlayAddress) swarm.OverlayAddress {
	var d swarm.OverlayAddress
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}
