package handshake

import (
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
)

var (
	// ErrNetworkIDIncompatible 对端网络ID与本节点不同
	ErrNetworkIDIncompatible = errors.New("incompatible network ID")

	// ErrHandshakeDuplicate 同一对端的重复入站握手
	ErrHandshakeDuplicate = errors.New("duplicate handshake")

	// ErrInvalidSyn Syn 消息缺失必要字段
	ErrInvalidSyn = errors.New("invalid syn")

	// ErrInvalidSynAck SynAck 消息缺失必要字段
	ErrInvalidSynAck = errors.New("invalid synack")

	// ErrInvalidAck Ack 消息缺失必要字段
	ErrInvalidAck = errors.New("invalid ack")

	// ErrWelcomeMessageLength 欢迎消息超长
	ErrWelcomeMessageLength = fmt.Errorf("handshake welcome message longer than %d bytes", MaxWelcomeMessageLength)

	// ErrUnsupportedProtocol 对端不支持握手协议
	ErrUnsupportedProtocol = errors.New("handshake protocol not supported by peer")

	// ErrNoUnderlay 无法确定本节点对外地址
	ErrNoUnderlay = errors.New("no advertisable underlay")
)

// Kind 握手错误分类
type Kind int

const (
	// KindTransport 流打开/读写失败，通常可由调用方重试
	KindTransport Kind = iota
	// KindDecode 消息帧或编码错误，不可重试
	KindDecode
	// KindVerification 对端地址校验失败，不可重试
	KindVerification
	// KindSigning 本地签名失败
	KindSigning
	// KindProtocol 协议语义错误（重复握手、缺失字段、非法状态迁移）
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindVerification:
		return "verification"
	case KindSigning:
		return "signing"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error 分类握手错误
type Error struct {
	Kind Kind
	Op   string  // 失败时所处步骤，如 "read synack"
	Peer peer.ID // 对端，未知时为空
	Err  error
}

func (e *Error) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("handshake %s (%s) with %s: %v", e.Op, e.Kind, e.Peer, e.Err)
	}
	return fmt.Sprintf("handshake %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable 判断错误是否可交由调用方的重试策略处理
// 仅传输错误可重试；对端不支持协议虽归为传输错误，但不可重试
func (e *Error) IsRetryable() bool {
	return e.Kind == KindTransport && !errors.Is(e.Err, ErrUnsupportedProtocol)
}

// IsRetryable 判断任意错误是否为可重试的握手错误
func IsRetryable(err error) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.IsRetryable()
	}
	return false
}

// KindOf 返回错误分类，非握手错误返回 false
func KindOf(err error) (Kind, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind, true
	}
	return 0, false
}

func newError(kind Kind, op string, p peer.ID, err error) *Error {
	return &Error{Kind: kind, Op: op, Peer: p, Err: err}
}
