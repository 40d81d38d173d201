package handshake

import (
	"context"
	"testing"
	"time"

	libhost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/key"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/signature"
	eventimpl "github.com/weisyn/handshake/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/handshake/internal/core/infrastructure/log"
	nodeimpl "github.com/weisyn/handshake/internal/core/infrastructure/node"
	"github.com/weisyn/handshake/pkg/constants/events"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// protocolNode mocknet 上的完整协议节点
type protocolNode struct {
	host     libhost.Host
	protocol *Protocol
	bus      *eventimpl.EventBus
	metrics  *Metrics
}

func newProtocolNode(t *testing.T, h libhost.Host, networkID uint64) *protocolNode {
	t.Helper()
	pk, err := key.NewKeyManager().Generate()
	require.NoError(t, err)
	signer, err := signature.NewEthSigner(pk)
	require.NoError(t, err)

	logger := logimpl.NewNop()
	host := nodeimpl.NewHostAdapter(h, logger)
	advertiser, err := NewHostAdvertiser(host, "")
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	svc, err := NewService(signer, signature.NewRecoverer(), advertiser, Options{NetworkID: networkID, ValidateOverlay: true}, logger, metrics)
	require.NoError(t, err)

	bus := eventimpl.NewEventBus()
	p := NewProtocol(host, svc, bus, logger, 5*time.Second)
	return &protocolNode{host: h, protocol: p, bus: bus, metrics: metrics}
}

func p2pAddr(t *testing.T, h libhost.Host) ma.Multiaddr {
	t.Helper()
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: h.ID(), Addrs: h.Addrs()})
	require.NoError(t, err)
	require.NotEmpty(t, addrs)
	return addrs[0]
}

func newMockNet(t *testing.T, n int) []libhost.Host {
	t.Helper()
	mn := mocknet.New()
	t.Cleanup(func() { _ = mn.Close() })
	hosts := make([]libhost.Host, n)
	for i := range hosts {
		h, err := mn.GenPeer()
		require.NoError(t, err)
		hosts[i] = h
	}
	require.NoError(t, mn.LinkAll())
	return hosts
}

func TestProtocol_ConnectPublishesVerified(t *testing.T) {
	hosts := newMockNet(t, 2)
	a := newProtocolNode(t, hosts[0], 1)
	b := newProtocolNode(t, hosts[1], 1)
	a.protocol.Start()
	b.protocol.Start()
	t.Cleanup(a.protocol.Stop)
	t.Cleanup(b.protocol.Stop)

	inbound := make(chan Info, 1)
	require.NoError(t, b.bus.Subscribe(events.EventTypePeerVerified, func(info Info) { inbound <- info }))
	outbound := make(chan Info, 1)
	require.NoError(t, a.bus.Subscribe(events.EventTypePeerVerified, func(info Info) { outbound <- info }))

	info, err := a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.NoError(t, err)
	assert.Equal(t, hosts[1].ID(), info.Peer)
	assert.Equal(t, b.protocol.Service().Overlay(), info.Address.Overlay())
	assert.Equal(t, StateAckExchanged, info.State)

	select {
	case got := <-outbound:
		assert.Equal(t, info.AttemptID, got.AttemptID)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到出站握手成功事件")
	}

	select {
	case got := <-inbound:
		assert.Equal(t, hosts[0].ID(), got.Peer)
		assert.Equal(t, a.protocol.Service().Overlay(), got.Address.Overlay())
		assert.Equal(t, RoleResponder, got.Role)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到入站握手成功事件")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.total.WithLabelValues(string(RoleInitiator), resultSuccess)))
}

func TestProtocol_UnsupportedProtocol(t *testing.T) {
	hosts := newMockNet(t, 2)
	a := newProtocolNode(t, hosts[0], 1)
	a.protocol.Start()
	t.Cleanup(a.protocol.Stop)

	failed := make(chan Failure, 1)
	require.NoError(t, a.bus.Subscribe(events.EventTypePeerFailed, func(f Failure) { failed <- f }))

	// hosts[1] 未注册握手协议
	_, err := a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, kind)
	assert.False(t, IsRetryable(err))

	select {
	case f := <-failed:
		assert.Equal(t, hosts[1].ID(), f.Peer)
		assert.Equal(t, RoleInitiator, f.Role)
		assert.Equal(t, KindTransport, f.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到握手失败事件")
	}
}

func TestProtocol_NetworkMismatchPublishesFailure(t *testing.T) {
	hosts := newMockNet(t, 2)
	a := newProtocolNode(t, hosts[0], 1)
	b := newProtocolNode(t, hosts[1], 2)
	a.protocol.Start()
	b.protocol.Start()
	t.Cleanup(a.protocol.Stop)
	t.Cleanup(b.protocol.Stop)

	_, err := a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkIDIncompatible)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.total.WithLabelValues(string(RoleInitiator), KindVerification.String())))
}

func TestProtocol_ConnectRejectsBadAddress(t *testing.T) {
	hosts := newMockNet(t, 1)
	a := newProtocolNode(t, hosts[0], 1)

	// 缺少 /p2p 后缀
	_, err := a.protocol.Connect(context.Background(), ma.StringCast("/ip4/127.0.0.1/tcp/1634"))
	assert.Error(t, err)

	// 不允许与自身握手
	_, err = a.protocol.Connect(context.Background(), p2pAddr(t, hosts[0]))
	assert.Error(t, err)
}

func TestProtocol_ConnectAll(t *testing.T) {
	hosts := newMockNet(t, 3)
	a := newProtocolNode(t, hosts[0], 1)
	b := newProtocolNode(t, hosts[1], 1)
	c := newProtocolNode(t, hosts[2], 1)
	for _, n := range []*protocolNode{a, b, c} {
		n.protocol.Start()
		t.Cleanup(n.protocol.Stop)
	}

	infos := a.protocol.ConnectAll(context.Background(), []string{
		p2pAddr(t, hosts[1]).String(),
		p2pAddr(t, hosts[2]).String(),
		"not-a-multiaddr",
	})
	require.Len(t, infos, 2)

	seen := map[peer.ID]bool{}
	for _, info := range infos {
		seen[info.Peer] = true
	}
	assert.True(t, seen[hosts[1].ID()])
	assert.True(t, seen[hosts[2].ID()])
}

func TestProtocol_DisconnectAllowsNewInboundHandshake(t *testing.T) {
	hosts := newMockNet(t, 2)
	a := newProtocolNode(t, hosts[0], 1)
	b := newProtocolNode(t, hosts[1], 1)
	a.protocol.Start()
	b.protocol.Start()
	t.Cleanup(a.protocol.Stop)
	t.Cleanup(b.protocol.Stop)

	disconnected := make(chan peer.ID, 4)
	require.NoError(t, b.bus.Subscribe(events.EventTypePeerDisconnected, func(id peer.ID) { disconnected <- id }))

	_, err := a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.NoError(t, err)

	// 未断开时同一对端的再次入站握手被拒绝
	_, err = a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.Error(t, err)

	require.NoError(t, hosts[0].Network().ClosePeer(hosts[1].ID()))
	select {
	case id := <-disconnected:
		assert.Equal(t, hosts[0].ID(), id)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到断连事件")
	}

	_, err = a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.NoError(t, err)
}

func TestProtocol_StopUnregistersHandler(t *testing.T) {
	hosts := newMockNet(t, 2)
	a := newProtocolNode(t, hosts[0], 1)
	b := newProtocolNode(t, hosts[1], 1)
	a.protocol.Start()
	b.protocol.Start()
	t.Cleanup(a.protocol.Stop)

	b.protocol.Stop()
	b.protocol.Stop() // 幂等

	_, err := a.protocol.Connect(context.Background(), p2pAddr(t, hosts[1]))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

// notifyHost 记录注册的断连回调
type notifyHost struct {
	stubHost
	callbacks []func(peer.ID)
}

func (h *notifyHost) RegisterStreamHandler(string, node.StreamHandler) {}
func (h *notifyHost) UnregisterStreamHandler(string)                   {}
func (h *notifyHost) Notify(fn func(peer.ID))                          { h.callbacks = append(h.callbacks, fn) }

func TestProtocol_RestartRegistersDisconnectOnce(t *testing.T) {
	host := &notifyHost{stubHost: stubHost{id: newPeerID(t)}}
	base := newProtocolNode(t, newMockNet(t, 1)[0], 1)
	p := NewProtocol(host, base.protocol.service, base.bus, logimpl.NewNop(), time.Second)

	p.Start()
	p.Stop()
	p.Start()
	t.Cleanup(p.Stop)
	require.Len(t, host.callbacks, 1)

	var count int
	require.NoError(t, base.bus.Subscribe(events.EventTypePeerDisconnected, func(peer.ID) { count++ }))
	for _, fn := range host.callbacks {
		fn(newPeerID(t))
	}
	assert.Equal(t, 1, count)
}
