package handshake

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-msgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/internal/core/handshake/pb"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/signature"
	logimpl "github.com/weisyn/handshake/internal/core/infrastructure/log"
	"github.com/weisyn/handshake/internal/core/swarm"
)

type exchangeResult struct {
	initiator    *Info
	initiatorErr error
	responder    *Info
	responderErr error
}

// runExchange 在内存管道上执行一次 a→b 握手
func runExchange(t *testing.T, ctx context.Context, a, b *testNode) exchangeResult {
	t.Helper()
	sa, sb := connectPipe(a, b)

	var (
		res exchangeResult
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res.responder, res.responderErr = b.svc.Handle(ctx, sb, nil, a.id)
	}()
	res.initiator, res.initiatorErr = a.svc.Handshake(ctx, sa, b.underlay, b.id)
	wg.Wait()
	return res
}

func TestHandshake_EndToEnd(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true, FullNode: true, WelcomeMessage: "hello from a"})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, ValidateOverlay: true, WelcomeMessage: "hello from b"})

	res := runExchange(t, context.Background(), a, b)
	require.NoError(t, res.initiatorErr)
	require.NoError(t, res.responderErr)

	// 发起方拿到 B 的已验证地址
	assert.Equal(t, StateAckExchanged, res.initiator.State)
	assert.Equal(t, RoleInitiator, res.initiator.Role)
	assert.Equal(t, b.chain, res.initiator.Address.Chain())
	assert.Equal(t, b.svc.Overlay(), res.initiator.Address.Overlay())
	assert.Equal(t, "hello from b", res.initiator.WelcomeMessage)
	assert.False(t, res.initiator.FullNode)
	assert.Equal(t, b.id, res.initiator.Peer)
	assert.NotEmpty(t, res.initiator.AttemptID)

	// 响应方拿到 A 的已验证地址
	assert.Equal(t, StateAckExchanged, res.responder.State)
	assert.Equal(t, RoleResponder, res.responder.Role)
	assert.Equal(t, a.chain, res.responder.Address.Chain())
	assert.Equal(t, a.svc.Overlay(), res.responder.Address.Overlay())
	assert.Equal(t, "hello from a", res.responder.WelcomeMessage)
	assert.True(t, res.responder.FullNode)
	assert.Equal(t, uint64(1), res.responder.NetworkID)
	assert.Equal(t, make([]byte, swarm.NonceSize), res.responder.Nonce)

	// 双方互报观察到的地址
	assert.Contains(t, res.initiator.ObservedUnderlay.String(), "/tcp/1111")
	assert.Contains(t, res.responder.ObservedUnderlay.String(), "/tcp/2222")
	assert.Contains(t, res.responder.ObservedUnderlay.String(), b.id.String())

	// 公布的 underlay 为对端 Advertiser 给出的地址
	assert.Contains(t, res.initiator.Address.Underlay().String(), "/tcp/2222")
	assert.Contains(t, res.responder.Address.Underlay().String(), "/tcp/1111")
}

func TestHandshake_WithNonce(t *testing.T) {
	nonce := swarm.Nonce{}
	for i := range nonce {
		nonce[i] = 7
	}
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 10, Nonce: &nonce, ValidateOverlay: true})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 10, ValidateOverlay: true})

	res := runExchange(t, context.Background(), a, b)
	require.NoError(t, res.initiatorErr)
	require.NoError(t, res.responderErr)

	assert.Equal(t, swarm.DeriveOverlay(a.chain, 10, &nonce), res.responder.Address.Overlay())
	assert.Equal(t, nonce[:], res.responder.Nonce)
}

func TestHandshake_NetworkIDMismatch(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 2, ValidateOverlay: true})

	res := runExchange(t, context.Background(), a, b)

	require.Error(t, res.initiatorErr)
	assert.ErrorIs(t, res.initiatorErr, ErrNetworkIDIncompatible)
	kind, ok := KindOf(res.initiatorErr)
	require.True(t, ok)
	assert.Equal(t, KindVerification, kind)
	assert.False(t, IsRetryable(res.initiatorErr))
	assert.Nil(t, res.initiator)

	// 响应方看到的是流被复位
	require.Error(t, res.responderErr)
	kind, ok = KindOf(res.responderErr)
	require.True(t, ok)
	assert.Equal(t, KindTransport, kind)
	assert.Nil(t, res.responder)
}

// fakePeer 在管道另一端手工收发消息
type fakePeer struct {
	w msgio.WriteCloser
	r msgio.ReadCloser
}

func newFakePeer(s *pipeStream) *fakePeer {
	return &fakePeer{w: msgio.NewVarintWriter(s), r: msgio.NewVarintReaderSize(s, DefaultMaxMessageSize)}
}

func (f *fakePeer) write(t *testing.T, m pb.Message) {
	data, err := m.Marshal()
	require.NoError(t, err)
	require.NoError(t, f.w.WriteMsg(data))
}

// send 供辅助 goroutine 使用，失败只记录
func (f *fakePeer) send(t *testing.T, m pb.Message) {
	data, err := m.Marshal()
	if err == nil {
		err = f.w.WriteMsg(data)
	}
	if err != nil {
		t.Logf("fake peer send: %v", err)
	}
}

func (f *fakePeer) read(t *testing.T, m pb.Message) {
	data, err := f.r.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, m.Unmarshal(data))
}

// signedAck 用给定节点身份构造合法 Ack
func signedAck(t *testing.T, n *testNode, networkID uint64) *pb.Ack {
	t.Helper()
	addr, sig, err := swarm.NewNodeAddress(n.signer, networkID, nil, n.underlay)
	require.NoError(t, err)
	return &pb.Ack{
		Address: &pb.BzzAddress{
			Underlay:  addr.Underlay().Bytes(),
			Signature: sig,
			Overlay:   addr.Overlay().Bytes(),
		},
		NetworkID: networkID,
		Nonce:     make([]byte, swarm.NonceSize),
	}
}

func TestHandle_TamperedAck(t *testing.T) {
	tests := []struct {
		name    string
		tamper  func(ack *pb.Ack)
		wantErr []error // 任一匹配即可
	}{
		{
			name:    "invalid recovery id",
			tamper:  func(ack *pb.Ack) { ack.Address.Signature[64] = 31 },
			wantErr: []error{swarm.ErrSignatureMismatch},
		},
		{
			name:    "short signature",
			tamper:  func(ack *pb.Ack) { ack.Address.Signature = ack.Address.Signature[:64] },
			wantErr: []error{swarm.ErrSignatureLengthMismatch},
		},
		{
			name:    "flipped overlay byte",
			tamper:  func(ack *pb.Ack) { ack.Address.Overlay[0] ^= 0xff },
			wantErr: []error{swarm.ErrSignatureMismatch, swarm.ErrOverlayMismatch},
		},
		{
			name:    "flipped signature byte",
			tamper:  func(ack *pb.Ack) { ack.Address.Signature[10] ^= 0x01 },
			wantErr: []error{swarm.ErrSignatureMismatch, swarm.ErrOverlayMismatch},
		},
		{
			name:    "wrong nonce",
			tamper:  func(ack *pb.Ack) { ack.Nonce = bytes.Repeat([]byte{1}, swarm.NonceSize) },
			wantErr: []error{swarm.ErrOverlayMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true})
			b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, ValidateOverlay: true})
			sa, sb := connectPipe(a, b)

			done := make(chan error, 1)
			go func() {
				_, err := b.svc.Handle(context.Background(), sb, nil, a.id)
				done <- err
			}()

			fp := newFakePeer(sa)
			fp.write(t, &pb.Syn{ObservedUnderlay: b.underlay.Bytes()})
			var synAck pb.SynAck
			fp.read(t, &synAck)

			ack := signedAck(t, a, 1)
			tt.tamper(ack)
			fp.write(t, ack)

			err := <-done
			require.Error(t, err)
			matched := false
			for _, want := range tt.wantErr {
				matched = matched || errors.Is(err, want)
			}
			assert.True(t, matched, "unexpected error: %v", err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindVerification, kind)
		})
	}
}

func TestHandle_OverlayValidationDisabled(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1})
	sa, sb := connectPipe(a, b)

	type result struct {
		info *Info
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := b.svc.Handle(context.Background(), sb, nil, a.id)
		done <- result{info, err}
	}()

	fp := newFakePeer(sa)
	fp.write(t, &pb.Syn{ObservedUnderlay: b.underlay.Bytes()})
	var synAck pb.SynAck
	fp.read(t, &synAck)

	// nonce 与签名时不同，overlay 绑定不再成立，但签名仍然有效
	ack := signedAck(t, a, 1)
	ack.Nonce = bytes.Repeat([]byte{9}, swarm.NonceSize)
	fp.write(t, ack)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, a.chain, res.info.Address.Chain())
}

func TestHandshake_InvalidSynAck(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, ValidateOverlay: true})
	bAck := signedAck(t, b, 1)

	tests := []struct {
		name     string
		reply    func(fp *fakePeer)
		wantKind Kind
		wantErr  error
	}{
		{
			name: "missing ack",
			reply: func(fp *fakePeer) {
				fp.send(t, &pb.SynAck{Syn: &pb.Syn{ObservedUnderlay: a.underlay.Bytes()}})
			},
			wantKind: KindProtocol,
			wantErr:  ErrInvalidSynAck,
		},
		{
			name: "missing syn",
			reply: func(fp *fakePeer) {
				fp.send(t, &pb.SynAck{Ack: bAck})
			},
			wantKind: KindProtocol,
			wantErr:  ErrInvalidSynAck,
		},
		{
			name: "garbage frame",
			reply: func(fp *fakePeer) {
				_ = fp.w.WriteMsg([]byte{0xff, 0xff, 0xff})
			},
			wantKind: KindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, sb := connectPipe(a, b)
			go func() {
				fp := newFakePeer(sb)
				if _, err := fp.r.ReadMsg(); err != nil {
					return
				}
				tt.reply(fp)
			}()

			info, err := a.svc.Handshake(context.Background(), sa, b.underlay, b.id)
			require.Error(t, err)
			assert.Nil(t, info)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHandle_OversizedMessage(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, MaxMessageSize: 64})
	sa, sb := connectPipe(a, b)

	go func() {
		_ = msgio.NewVarintWriter(sa).WriteMsg(bytes.Repeat([]byte{0x0a}, 512))
	}()

	_, err := b.svc.Handle(context.Background(), sb, nil, a.id)
	require.Error(t, err)
	assert.ErrorIs(t, err, msgio.ErrMsgTooLarge)
	kind, _ := KindOf(err)
	assert.Equal(t, KindDecode, kind)
}

func TestHandle_EmptySyn(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1})
	sa, sb := connectPipe(a, b)

	// 仅含未知字段的 Syn
	go func() { _ = msgio.NewVarintWriter(sa).WriteMsg([]byte{0x28, 0x01}) }()

	_, err := b.svc.Handle(context.Background(), sb, nil, a.id)
	assert.ErrorIs(t, err, ErrInvalidSyn)
}

func TestHandle_Duplicate(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, ValidateOverlay: true})

	res := runExchange(t, context.Background(), a, b)
	require.NoError(t, res.responderErr)

	// 断开前再次入站握手被拒绝
	_, sb := connectPipe(a, b)
	_, err := b.svc.Handle(context.Background(), sb, nil, a.id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandshakeDuplicate)
	kind, _ := KindOf(err)
	assert.Equal(t, KindProtocol, kind)

	// 断开后允许重新握手
	b.svc.Disconnected(a.id)
	res = runExchange(t, context.Background(), a, b)
	require.NoError(t, res.initiatorErr)
	require.NoError(t, res.responderErr)
}

func TestHandle_FailedAttemptDoesNotBlockRetry(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1, ValidateOverlay: true})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1, ValidateOverlay: true})

	sa, sb := connectPipe(a, b)
	_ = sa.Close()
	_, err := b.svc.Handle(context.Background(), sb, nil, a.id)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	res := runExchange(t, context.Background(), a, b)
	require.NoError(t, res.responderErr)
}

func TestHandshake_ContextCancel(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1})
	sa, _ := connectPipe(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	// 对端从不读取，写 Syn 会阻塞直到取消
	info, err := a.svc.Handshake(ctx, sa, b.underlay, b.id)
	require.Error(t, err)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsRetryable(err))
}

func TestHandshake_AlreadyCancelled(t *testing.T) {
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1})
	sa, _ := connectPipe(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.svc.Handshake(ctx, sa, b.underlay, b.id)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandshake_SigningFailure(t *testing.T) {
	b := newTestNode(t, "/ip4/127.0.0.1/tcp/2222", Options{NetworkID: 1})
	a := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})

	broken, err := NewService(brokenSigner{a.signer}, signature.NewRecoverer(), StaticAdvertiser{Addr: a.underlay}, Options{NetworkID: 1}, logimpl.NewNop(), nil)
	require.NoError(t, err)

	sa, sb := connectPipe(a, b)
	go func() { _, _ = b.svc.Handle(context.Background(), sb, nil, a.id) }()

	_, err = broken.Handshake(context.Background(), sa, b.underlay, b.id)
	require.Error(t, err)
	assert.ErrorIs(t, err, swarm.ErrSigning)
	kind, _ := KindOf(err)
	assert.Equal(t, KindSigning, kind)
}

// brokenSigner 链地址可用但签名失败
type brokenSigner struct{ *signature.EthSigner }

func (brokenSigner) Sign([]byte) ([]byte, error) { return nil, errors.New("key locked") }

func TestHandshake_ConcurrentPeers(t *testing.T) {
	hub := newTestNode(t, "/ip4/127.0.0.1/tcp/1000", Options{NetworkID: 1, ValidateOverlay: true})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		peerNode := newTestNode(t, "/ip4/127.0.0.1/tcp/2000", Options{NetworkID: 1, ValidateOverlay: true})
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := runExchange(t, context.Background(), peerNode, hub)
			errs <- res.initiatorErr
			errs <- res.responderErr
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestService_WelcomeMessage(t *testing.T) {
	long := strings.Repeat("x", MaxWelcomeMessageLength+1)

	n := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})
	_, err := NewService(n.signer, signature.NewRecoverer(), StaticAdvertiser{Addr: n.underlay}, Options{WelcomeMessage: long}, logimpl.NewNop(), nil)
	assert.ErrorIs(t, err, ErrWelcomeMessageLength)

	assert.ErrorIs(t, n.svc.SetWelcomeMessage(long), ErrWelcomeMessageLength)
	require.NoError(t, n.svc.SetWelcomeMessage("hi"))
	assert.Equal(t, "hi", n.svc.GetWelcomeMessage())
}

func TestService_Identity(t *testing.T) {
	n := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 5, FullNode: true})

	assert.Equal(t, n.chain, n.svc.ChainAddress())
	assert.Equal(t, swarm.DeriveOverlay(n.chain, 5, nil), n.svc.Overlay())
	assert.Equal(t, uint64(5), n.svc.NetworkID())
	assert.Equal(t, make([]byte, swarm.NonceSize), n.svc.Nonce())
	assert.True(t, n.svc.FullNode())
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	n := newTestNode(t, "/ip4/127.0.0.1/tcp/1111", Options{NetworkID: 1})

	_, err := NewService(nil, signature.NewRecoverer(), StaticAdvertiser{}, Options{}, logimpl.NewNop(), nil)
	assert.Error(t, err)
	_, err = NewService(n.signer, signature.NewRecoverer(), StaticAdvertiser{}, Options{}, nil, nil)
	assert.Error(t, err)
}
