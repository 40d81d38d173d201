package node

import (
	"context"
	"io"
	"testing"
	"time"

	libhost "github.com/libp2p/go-libp2p/core/host"
	libpeer "github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nodeconfig "github.com/weisyn/handshake/internal/config/node"
	hostpkg "github.com/weisyn/handshake/internal/core/infrastructure/node/impl/host"
	nodeiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

const testProtocol = "/test/echo/1.0.0"

// newMockPair 创建两台已互联的 mocknet 主机
func newMockPair(t *testing.T) (libhost.Host, libhost.Host) {
	t.Helper()
	mn := mocknet.New()
	t.Cleanup(func() { _ = mn.Close() })

	a, err := mn.GenPeer()
	require.NoError(t, err)
	b, err := mn.GenPeer()
	require.NoError(t, err)
	require.NoError(t, mn.LinkAll())
	return a, b
}

func TestHostAdapter_StreamRoundTrip(t *testing.T) {
	ha, hb := newMockPair(t)
	a := NewHostAdapter(ha, nil)
	b := NewHostAdapter(hb, nil)

	remoteSeen := make(chan libpeer.ID, 1)
	b.RegisterStreamHandler(testProtocol, func(ctx context.Context, remote libpeer.ID, s nodeiface.RawStream) {
		defer s.Close()
		remoteSeen <- s.RemotePeer()
		buf, err := io.ReadAll(s)
		if err != nil {
			_ = s.Reset()
			return
		}
		_, _ = s.Write(buf)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, a.Connect(ctx, libpeer.AddrInfo{ID: hb.ID(), Addrs: hb.Addrs()}))
	// 已连接时再次调用幂等
	require.NoError(t, a.Connect(ctx, libpeer.AddrInfo{ID: hb.ID(), Addrs: hb.Addrs()}))

	s, err := a.NewStream(ctx, hb.ID(), testProtocol)
	require.NoError(t, err)
	assert.Equal(t, hb.ID(), s.RemotePeer())
	assert.NotNil(t, s.RemoteMultiaddr())

	_, err = s.Write([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, s.CloseWrite())

	reply, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), reply)
	assert.Equal(t, ha.ID(), <-remoteSeen)
}

func TestHostAdapter_UnsupportedProtocol(t *testing.T) {
	ha, hb := newMockPair(t)
	a := NewHostAdapter(ha, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, libpeer.AddrInfo{ID: hb.ID(), Addrs: hb.Addrs()}))

	_, err := a.NewStream(ctx, hb.ID(), "/not/registered/1.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, nodeiface.ErrProtocolNotSupported)
}

func TestHostAdapter_UnregisterStreamHandler(t *testing.T) {
	ha, hb := newMockPair(t)
	a := NewHostAdapter(ha, nil)
	b := NewHostAdapter(hb, nil)

	b.RegisterStreamHandler(testProtocol, func(ctx context.Context, remote libpeer.ID, s nodeiface.RawStream) {
		_ = s.Close()
	})
	b.UnregisterStreamHandler(testProtocol)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, libpeer.AddrInfo{ID: hb.ID(), Addrs: hb.Addrs()}))

	_, err := a.NewStream(ctx, hb.ID(), testProtocol)
	assert.ErrorIs(t, err, nodeiface.ErrProtocolNotSupported)
}

func TestHostAdapter_NotifyDisconnected(t *testing.T) {
	ha, hb := newMockPair(t)
	a := NewHostAdapter(ha, nil)

	disconnected := make(chan libpeer.ID, 1)
	a.Notify(func(p libpeer.ID) { disconnected <- p })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, libpeer.AddrInfo{ID: hb.ID(), Addrs: hb.Addrs()}))
	require.NoError(t, ha.Network().ClosePeer(hb.ID()))

	select {
	case p := <-disconnected:
		assert.Equal(t, hb.ID(), p)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到断连通知")
	}
}

func TestHostService_NotStarted(t *testing.T) {
	runtime, err := hostpkg.NewRuntime(nil, nil)
	require.NoError(t, err)
	svc := newHostService(runtime)

	_, err = svc.NewStream(context.Background(), "peer", testProtocol)
	assert.ErrorIs(t, err, nodeiface.ErrHostNotStarted)
	assert.ErrorIs(t, svc.Connect(context.Background(), libpeer.AddrInfo{}), nodeiface.ErrHostNotStarted)
	assert.Empty(t, svc.ID())
	assert.Nil(t, svc.ListenAddrs())
}

func TestHostService_PendingHandlersRegisteredOnStart(t *testing.T) {
	opts := nodeconfig.New(nil).GetOptions()
	opts.Host.ListenAddresses = []string{"/ip4/127.0.0.1/tcp/0"}
	opts.Host.Transport.EnableQUIC = false

	runtime, err := hostpkg.NewRuntime(opts, nil)
	require.NoError(t, err)
	svc := newHostService(runtime)

	svc.RegisterStreamHandler(testProtocol, func(ctx context.Context, remote libpeer.ID, s nodeiface.RawStream) {
		_ = s.Close()
	})

	require.NoError(t, runtime.Start(context.Background()))
	defer func() { require.NoError(t, runtime.Stop(context.Background())) }()

	svc.RegisterPendingHandlers()

	assert.NotEmpty(t, svc.ID())
	assert.NotEmpty(t, svc.ListenAddrs())

	var found bool
	for _, p := range runtime.Host().Mux().Protocols() {
		if string(p) == testProtocol {
			found = true
		}
	}
	assert.True(t, found, "延迟注册的协议应在启动后生效")
}
