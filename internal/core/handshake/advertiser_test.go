package handshake

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// stubHost 仅提供 ID 与监听地址
type stubHost struct {
	node.Host
	id    peer.ID
	addrs []ma.Multiaddr
}

func (h stubHost) ID() peer.ID                 { return h.id }
func (h stubHost) ListenAddrs() []ma.Multiaddr { return h.addrs }

func TestHostAdvertiser_PrefersAnnounce(t *testing.T) {
	id := newPeerID(t)
	host := stubHost{id: id, addrs: []ma.Multiaddr{ma.StringCast("/ip4/10.0.0.1/tcp/1634")}}

	adv, err := NewHostAdvertiser(host, "/dns4/node.example.org/tcp/1634")
	require.NoError(t, err)

	got, err := adv.Underlay(ma.StringCast("/ip4/1.2.3.4/tcp/9999"))
	require.NoError(t, err)
	assert.Equal(t, "/dns4/node.example.org/tcp/1634/p2p/"+id.String(), got.String())
}

func TestHostAdvertiser_ListenAddress(t *testing.T) {
	id := newPeerID(t)
	host := stubHost{id: id, addrs: []ma.Multiaddr{
		ma.StringCast("/ip4/0.0.0.0/tcp/1634"),
		ma.StringCast("/ip4/127.0.0.1/tcp/1634"),
		ma.StringCast("/ip4/192.168.1.5/tcp/1634"),
	}}

	adv, err := NewHostAdvertiser(host, "")
	require.NoError(t, err)

	got, err := adv.Underlay(nil)
	require.NoError(t, err)
	assert.Equal(t, "/ip4/192.168.1.5/tcp/1634/p2p/"+id.String(), got.String())

	// 只有回环地址时退回回环
	host.addrs = host.addrs[:2]
	adv, err = NewHostAdvertiser(host, "")
	require.NoError(t, err)
	got, err = adv.Underlay(nil)
	require.NoError(t, err)
	assert.Equal(t, "/ip4/127.0.0.1/tcp/1634/p2p/"+id.String(), got.String())
}

func TestHostAdvertiser_FallsBackToObserved(t *testing.T) {
	host := stubHost{id: newPeerID(t)}
	adv, err := NewHostAdvertiser(host, "")
	require.NoError(t, err)

	observed := ma.StringCast("/ip4/1.2.3.4/tcp/9999")
	got, err := adv.Underlay(observed)
	require.NoError(t, err)
	assert.True(t, got.Equal(observed))

	_, err = adv.Underlay(nil)
	assert.ErrorIs(t, err, ErrNoUnderlay)
}

func TestHostAdvertiser_InvalidAnnounce(t *testing.T) {
	_, err := NewHostAdvertiser(stubHost{}, "not-a-multiaddr")
	assert.Error(t, err)
}

func TestStaticAdvertiser(t *testing.T) {
	_, err := StaticAdvertiser{}.Underlay(nil)
	assert.ErrorIs(t, err, ErrNoUnderlay)

	addr := ma.StringCast("/ip4/127.0.0.1/tcp/1")
	got, err := StaticAdvertiser{Addr: addr}.Underlay(nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(addr))
}
