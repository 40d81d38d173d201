// Package handshake 实现 Swarm 握手协议
//
// 一次握手在一条新流上交换三条消息：
//
//	发起方 → Syn{observed_underlay}
//	响应方 → SynAck{observed_underlay, address, network_id, full_node, nonce, welcome_message}
//	发起方 → Ack{address, network_id, full_node, nonce, welcome_message}
//
// 双方在收到对端签名地址后执行解析与校验，任一校验失败即复位流，不保留任何部分信任。
// Service 只负责单条流上的状态机，不做重试；拨号、超时与事件发布由 Protocol 负责。
package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/weisyn/handshake/internal/core/handshake/pb"
	"github.com/weisyn/handshake/internal/core/swarm"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/crypto"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

const (
	// MaxWelcomeMessageLength 欢迎消息最大字节数
	MaxWelcomeMessageLength = 140

	// DefaultMaxTrackedPeers 重复握手检测记录的最大对端数
	DefaultMaxTrackedPeers = 10000
)

// Options 握手服务参数
type Options struct {
	NetworkID       uint64
	FullNode        bool
	Nonce           *swarm.Nonce // nil 表示全零 nonce
	WelcomeMessage  string
	ValidateOverlay bool // 为 false 时接受未经绑定校验的 overlay 声明
	MaxMessageSize  int
	MaxTrackedPeers int
}

// Service 握手状态机
// 只读配置在构造后不再变化，可被多个握手 goroutine 共享
type Service struct {
	signer     crypto.Signer
	recoverer  crypto.Recoverer
	advertiser Advertiser
	logger     log.Logger
	metrics    *Metrics

	networkID       uint64
	fullNode        bool
	nonce           *swarm.Nonce
	validateOverlay bool
	maxMessageSize  int

	chain   common.Address
	overlay swarm.OverlayAddress

	welcomeMessage atomic.Value // string
	received       *lru.Cache[peer.ID, struct{}]
}

// NewService 创建握手服务
func NewService(signer crypto.Signer, recoverer crypto.Recoverer, advertiser Advertiser, opts Options, logger log.Logger, metrics *Metrics) (*Service, error) {
	if signer == nil || recoverer == nil || advertiser == nil {
		return nil, errors.New("handshake: signer, recoverer and advertiser are required")
	}
	if len(opts.WelcomeMessage) > MaxWelcomeMessageLength {
		return nil, ErrWelcomeMessageLength
	}
	if logger == nil {
		return nil, errors.New("handshake: logger is required")
	}

	chain, err := signer.EthereumAddress()
	if err != nil {
		return nil, fmt.Errorf("handshake: resolve chain address: %w", err)
	}

	size := opts.MaxTrackedPeers
	if size <= 0 {
		size = DefaultMaxTrackedPeers
	}
	received, err := lru.New[peer.ID, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("handshake: create peer cache: %w", err)
	}

	maxSize := opts.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}

	s := &Service{
		signer:          signer,
		recoverer:       recoverer,
		advertiser:      advertiser,
		logger:          logger,
		metrics:         metrics,
		networkID:       opts.NetworkID,
		fullNode:        opts.FullNode,
		nonce:           opts.Nonce,
		validateOverlay: opts.ValidateOverlay,
		maxMessageSize:  maxSize,
		chain:           chain,
		overlay:         swarm.DeriveOverlay(chain, opts.NetworkID, opts.Nonce),
		received:        received,
	}
	s.welcomeMessage.Store(opts.WelcomeMessage)

	if !opts.ValidateOverlay {
		logger.Warn("overlay 绑定校验已关闭，将接受未经校验的对端 overlay 声明")
	}
	return s, nil
}

// Handshake 以发起方身份在已打开的流上执行握手
// peerMultiaddr 为拨号所用地址，作为 Syn 中的 observed underlay 发送给对端
func (s *Service) Handshake(ctx context.Context, stream node.RawStream, peerMultiaddr ma.Multiaddr, peerID peer.ID) (*Info, error) {
	start := time.Now()
	attempt := uuid.NewString()
	sess := newSession(RoleInitiator)
	logger := s.logger.With("peer", peerID.String(), "attempt", attempt, "role", string(RoleInitiator))

	info, err := s.runInitiator(ctx, sess, stream, peerMultiaddr, peerID)
	if err != nil {
		err = s.abort(ctx, sess, stream, err)
		s.metrics.observe(RoleInitiator, start, err)
		logger.Debugf("握手失败: %v", err)
		return nil, err
	}

	info.AttemptID = attempt
	s.metrics.observe(RoleInitiator, start, nil)
	logger.Debugf("握手完成 overlay=%s%s", info.Address.Overlay(), info.LightString())
	return info, nil
}

func (s *Service) runInitiator(ctx context.Context, sess *session, stream node.RawStream, peerMultiaddr ma.Multiaddr, peerID peer.ID) (*Info, error) {
	stop := watchContext(ctx, stream)
	defer stop()

	if err := ctx.Err(); err != nil {
		return nil, newError(KindTransport, "start", peerID, err)
	}

	if peerMultiaddr == nil {
		peerMultiaddr = stream.RemoteMultiaddr()
	}
	fullRemote, err := buildFullMA(peerMultiaddr, peerID)
	if err != nil {
		return nil, newError(KindProtocol, "build observed underlay", peerID, err)
	}

	codec := newStreamCodec(stream, s.maxMessageSize, peerID)

	if err := codec.writeMsg("write syn", &pb.Syn{ObservedUnderlay: fullRemote.Bytes()}); err != nil {
		return nil, err
	}
	if err := sess.advance(StateSynSent); err != nil {
		return nil, newError(KindProtocol, "write syn", peerID, err)
	}

	var resp pb.SynAck
	if err := codec.readMsg("read synack", &resp); err != nil {
		return nil, err
	}
	ack := resp.GetAck()
	if resp.GetSyn() == nil || ack.GetAddress() == nil {
		return nil, newError(KindProtocol, "read synack", peerID, ErrInvalidSynAck)
	}

	observed, err := ma.NewMultiaddrBytes(resp.Syn.ObservedUnderlay)
	if err != nil {
		return nil, newError(KindProtocol, "read synack", peerID, fmt.Errorf("%w: observed underlay: %v", ErrInvalidSynAck, err))
	}

	remote, err := s.verifyAck(ack, peerID, "verify synack")
	if err != nil {
		return nil, err
	}

	ownUnderlay, err := s.advertiser.Underlay(observed)
	if err != nil {
		return nil, newError(KindProtocol, "advertise underlay", peerID, err)
	}
	ownAck, err := s.buildAck(ownUnderlay, peerID)
	if err != nil {
		return nil, err
	}
	if err := codec.writeMsg("write ack", ownAck); err != nil {
		return nil, err
	}
	if err := sess.advance(StateAckExchanged); err != nil {
		return nil, newError(KindProtocol, "write ack", peerID, err)
	}

	stop()
	_ = stream.Close()
	_ = sess.advance(StateClosed)

	return &Info{
		Address:          remote,
		FullNode:         ack.FullNode,
		WelcomeMessage:   ack.WelcomeMessage,
		NetworkID:        ack.NetworkID,
		Nonce:            ack.Nonce,
		ObservedUnderlay: observed,
		Peer:             peerID,
		Role:             RoleInitiator,
		State:            StateAckExchanged,
	}, nil
}

// Handle 以响应方身份处理入站握手流
// 同一对端在 Disconnected 之前只接受一次入站握手
func (s *Service) Handle(ctx context.Context, stream node.RawStream, remoteMultiaddr ma.Multiaddr, remotePeer peer.ID) (*Info, error) {
	start := time.Now()
	attempt := uuid.NewString()
	sess := newSession(RoleResponder)
	logger := s.logger.With("peer", remotePeer.String(), "attempt", attempt, "role", string(RoleResponder))

	if seen, _ := s.received.ContainsOrAdd(remotePeer, struct{}{}); seen {
		s.metrics.observeDuplicate()
		err := s.abort(ctx, sess, stream, newError(KindProtocol, "accept", remotePeer, ErrHandshakeDuplicate))
		s.metrics.observe(RoleResponder, start, err)
		logger.Debugf("拒绝重复握手")
		return nil, err
	}

	info, err := s.runResponder(ctx, sess, stream, remoteMultiaddr, remotePeer)
	if err != nil {
		s.received.Remove(remotePeer)
		err = s.abort(ctx, sess, stream, err)
		s.metrics.observe(RoleResponder, start, err)
		logger.Debugf("握手失败: %v", err)
		return nil, err
	}

	info.AttemptID = attempt
	s.metrics.observe(RoleResponder, start, nil)
	logger.Debugf("握手完成 overlay=%s%s", info.Address.Overlay(), info.LightString())
	return info, nil
}

func (s *Service) runResponder(ctx context.Context, sess *session, stream node.RawStream, remoteMultiaddr ma.Multiaddr, remotePeer peer.ID) (*Info, error) {
	stop := watchContext(ctx, stream)
	defer stop()

	if err := ctx.Err(); err != nil {
		return nil, newError(KindTransport, "start", remotePeer, err)
	}

	if remoteMultiaddr == nil {
		remoteMultiaddr = stream.RemoteMultiaddr()
	}
	fullRemote, err := buildFullMA(remoteMultiaddr, remotePeer)
	if err != nil {
		return nil, newError(KindProtocol, "build observed underlay", remotePeer, err)
	}

	codec := newStreamCodec(stream, s.maxMessageSize, remotePeer)

	var syn pb.Syn
	if err := codec.readMsg("read syn", &syn); err != nil {
		return nil, err
	}
	if err := sess.advance(StateSynReceived); err != nil {
		return nil, newError(KindProtocol, "read syn", remotePeer, err)
	}
	if len(syn.ObservedUnderlay) == 0 {
		return nil, newError(KindProtocol, "read syn", remotePeer, ErrInvalidSyn)
	}
	observed, err := ma.NewMultiaddrBytes(syn.ObservedUnderlay)
	if err != nil {
		return nil, newError(KindProtocol, "read syn", remotePeer, fmt.Errorf("%w: observed underlay: %v", ErrInvalidSyn, err))
	}

	ownUnderlay, err := s.advertiser.Underlay(observed)
	if err != nil {
		return nil, newError(KindProtocol, "advertise underlay", remotePeer, err)
	}
	ownAck, err := s.buildAck(ownUnderlay, remotePeer)
	if err != nil {
		return nil, err
	}

	if err := codec.writeMsg("write synack", &pb.SynAck{
		Syn: &pb.Syn{ObservedUnderlay: fullRemote.Bytes()},
		Ack: ownAck,
	}); err != nil {
		return nil, err
	}

	var ack pb.Ack
	if err := codec.readMsg("read ack", &ack); err != nil {
		return nil, err
	}
	if ack.GetAddress() == nil {
		return nil, newError(KindProtocol, "read ack", remotePeer, ErrInvalidAck)
	}

	remote, err := s.verifyAck(&ack, remotePeer, "verify ack")
	if err != nil {
		return nil, err
	}
	if err := sess.advance(StateAckExchanged); err != nil {
		return nil, newError(KindProtocol, "read ack", remotePeer, err)
	}

	stop()
	_ = stream.Close()
	_ = sess.advance(StateClosed)

	return &Info{
		Address:          remote,
		FullNode:         ack.FullNode,
		WelcomeMessage:   ack.WelcomeMessage,
		NetworkID:        ack.NetworkID,
		Nonce:            ack.Nonce,
		ObservedUnderlay: observed,
		Peer:             remotePeer,
		Role:             RoleResponder,
		State:            StateAckExchanged,
	}, nil
}

// verifyAck 校验对端 Ack 中的网络ID与签名地址
func (s *Service) verifyAck(ack *pb.Ack, p peer.ID, op string) (*swarm.NodeAddress, error) {
	if ack.NetworkID != s.networkID {
		return nil, newError(KindVerification, op, p, fmt.Errorf("%w: got %d, want %d", ErrNetworkIDIncompatible, ack.NetworkID, s.networkID))
	}
	addr := ack.Address
	remote, err := swarm.ParseNodeAddress(s.recoverer, addr.Underlay, addr.Overlay, addr.Signature, ack.Nonce, s.validateOverlay, s.networkID)
	if err != nil {
		return nil, newError(KindVerification, op, p, err)
	}
	return remote, nil
}

// buildAck 签名本节点地址并构造 Ack
func (s *Service) buildAck(underlay ma.Multiaddr, p peer.ID) (*pb.Ack, error) {
	addr, sig, err := swarm.NewNodeAddress(s.signer, s.networkID, s.nonce, underlay)
	if err != nil {
		return nil, newError(KindSigning, "sign address", p, err)
	}
	overlay := addr.Overlay()
	return &pb.Ack{
		Address: &pb.BzzAddress{
			Underlay:  addr.Underlay().Bytes(),
			Signature: sig,
			Overlay:   overlay[:],
		},
		NetworkID:      s.networkID,
		FullNode:       s.fullNode,
		Nonce:          s.nonce.Bytes(),
		WelcomeMessage: s.GetWelcomeMessage(),
	}, nil
}

// abort 将会话置为失败并复位流
// 上下文已结束时在错误中保留取消原因
func (s *Service) abort(ctx context.Context, sess *session, stream node.RawStream, err error) error {
	sess.fail()
	_ = stream.Reset()

	if ctxErr := ctx.Err(); ctxErr != nil {
		var he *Error
		if errors.As(err, &he) && he.Kind == KindTransport && !errors.Is(he.Err, ctxErr) {
			he.Err = fmt.Errorf("%w: %v", ctxErr, he.Err)
		}
	}
	return err
}

// Disconnected 对端断开后允许其再次发起入站握手
func (s *Service) Disconnected(p peer.ID) {
	s.received.Remove(p)
}

// SetWelcomeMessage 设置本节点欢迎消息
func (s *Service) SetWelcomeMessage(msg string) error {
	if len(msg) > MaxWelcomeMessageLength {
		return ErrWelcomeMessageLength
	}
	s.welcomeMessage.Store(msg)
	return nil
}

// GetWelcomeMessage 返回本节点欢迎消息
func (s *Service) GetWelcomeMessage() string {
	return s.welcomeMessage.Load().(string)
}

// Overlay 本节点覆盖地址
func (s *Service) Overlay() swarm.OverlayAddress { return s.overlay }

// ChainAddress 本节点链地址
func (s *Service) ChainAddress() common.Address { return s.chain }

// NetworkID 本节点网络ID
func (s *Service) NetworkID() uint64 { return s.networkID }

// Nonce 本节点 nonce 的 32 字节表示
func (s *Service) Nonce() []byte { return s.nonce.Bytes() }

// FullNode 是否为全节点
func (s *Service) FullNode() bool { return s.fullNode }

// watchContext 将上下文的截止时间与取消映射到流
// 返回的 stop 在成功路径上调用，避免复位已完成的流
func watchContext(ctx context.Context, stream node.RawStream) (stop func() bool) {
	if deadline, ok := ctx.Deadline(); ok {
		// 部分流实现（如 mocknet）不支持截止时间，忽略错误
		_ = stream.SetDeadline(deadline)
	}
	return context.AfterFunc(ctx, func() { _ = stream.Reset() })
}

// buildFullMA 为地址补全 /p2p/<peer> 后缀
func buildFullMA(addr ma.Multiaddr, p peer.ID) (ma.Multiaddr, error) {
	if addr == nil {
		return nil, errors.New("missing remote multiaddr")
	}
	if _, err := addr.ValueForProtocol(ma.P_P2P); err == nil {
		return addr, nil
	}
	if p == "" {
		return addr, nil
	}
	p2pAddr, err := ma.NewMultiaddr("/p2p/" + p.String())
	if err != nil {
		return nil, err
	}
	return addr.Encapsulate(p2pAddr), nil
}
