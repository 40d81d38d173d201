package handshake

import (
	"crypto/rand"
	"net"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	libcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/key"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/signature"
	logimpl "github.com/weisyn/handshake/internal/core/infrastructure/log"
)

// pipeStream 基于 net.Pipe 的内存流
type pipeStream struct {
	net.Conn
	remote peer.ID
	addr   ma.Multiaddr
}

func (p *pipeStream) CloseWrite() error             { return nil }
func (p *pipeStream) Reset() error                  { return p.Conn.Close() }
func (p *pipeStream) RemotePeer() peer.ID           { return p.remote }
func (p *pipeStream) RemoteMultiaddr() ma.Multiaddr { return p.addr }

// testNode 单个测试节点
type testNode struct {
	svc      *Service
	signer   *signature.EthSigner
	chain    common.Address
	id       peer.ID
	underlay ma.Multiaddr
}

func newPeerID(t *testing.T) peer.ID {
	t.Helper()
	priv, _, err := libcrypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	id, err := peer.IDFromPrivateKey(priv)
	require.NoError(t, err)
	return id
}

// newTestNode 创建测试节点，underlay 不含 /p2p 后缀
func newTestNode(t *testing.T, underlay string, opts Options) *testNode {
	t.Helper()
	pk, err := key.NewKeyManager().Generate()
	require.NoError(t, err)
	signer, err := signature.NewEthSigner(pk)
	require.NoError(t, err)
	chain, err := signer.EthereumAddress()
	require.NoError(t, err)

	id := newPeerID(t)
	addr := ma.StringCast(underlay)
	advertised, err := buildFullMA(addr, id)
	require.NoError(t, err)

	svc, err := NewService(signer, signature.NewRecoverer(), StaticAdvertiser{Addr: advertised}, opts, logimpl.NewNop(), nil)
	require.NoError(t, err)

	return &testNode{svc: svc, signer: signer, chain: chain, id: id, underlay: addr}
}

// connectPipe 返回 a→b 与 b→a 两端的流
func connectPipe(a, b *testNode) (*pipeStream, *pipeStream) {
	ca, cb := net.Pipe()
	return &pipeStream{Conn: ca, remote: b.id, addr: b.underlay},
		&pipeStream{Conn: cb, remote: a.id, addr: a.underlay}
}
