// Package pb 定义握手协议消息及其 protobuf 线格式编解码
//
// 消息结构见 handshake.proto。编解码基于 protowire 按字段号手工实现，
// 线格式与 protoc 生成代码一致：零值字段不编码，未知字段在解码时跳过。
package pb

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// 字段号
const (
	synObservedUnderlay protowire.Number = 1

	bzzUnderlay  protowire.Number = 1
	bzzSignature protowire.Number = 2
	bzzOverlay   protowire.Number = 3

	ackAddress        protowire.Number = 1
	ackNetworkID      protowire.Number = 2
	ackFullNode       protowire.Number = 3
	ackNonce          protowire.Number = 4
	ackWelcomeMessage protowire.Number = 99

	synAckSyn protowire.Number = 1
	synAckAck protowire.Number = 2
)

// ErrWireType 字段线类型与定义不符
var ErrWireType = errors.New("pb: unexpected wire type")

// ErrInvalidUTF8 string 字段不是合法 UTF-8
var ErrInvalidUTF8 = errors.New("pb: string field contains invalid UTF-8")

// Message 可编解码的握手消息
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// Syn 发起方首条消息
type Syn struct {
	ObservedUnderlay []byte
}

// BzzAddress 已签名的节点地址声明
type BzzAddress struct {
	Underlay  []byte
	Signature []byte
	Overlay   []byte
}

// Ack 节点地址与能力声明
type Ack struct {
	Address        *BzzAddress
	NetworkID      uint64
	FullNode       bool
	Nonce          []byte
	WelcomeMessage string
}

// SynAck 响应方消息：回报观察到的地址并附带自身 Ack
type SynAck struct {
	Syn *Syn
	Ack *Ack
}

// GetAddress 返回地址，nil 安全
func (m *Ack) GetAddress() *BzzAddress {
	if m == nil {
		return nil
	}
	return m.Address
}

// GetSyn 返回 Syn，nil 安全
func (m *SynAck) GetSyn() *Syn {
	if m == nil {
		return nil
	}
	return m.Syn
}

// GetAck 返回 Ack，nil 安全
func (m *SynAck) GetAck() *Ack {
	if m == nil {
		return nil
	}
	return m.Ack
}

// ---------------------------------------------------------------------------
// Syn

// Marshal 编码
func (m *Syn) Marshal() ([]byte, error) {
	return m.appendTo(nil), nil
}

func (m *Syn) appendTo(b []byte) []byte {
	return appendBytesField(b, synObservedUnderlay, m.ObservedUnderlay)
}

// Unmarshal 解码
func (m *Syn) Unmarshal(data []byte) error {
	*m = Syn{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case synObservedUnderlay:
			return consumeBytes(typ, b, &m.ObservedUnderlay)
		}
		return skipField(num, typ, b)
	})
}

// ---------------------------------------------------------------------------
// BzzAddress

// Marshal 编码
func (m *BzzAddress) Marshal() ([]byte, error) {
	return m.appendTo(nil), nil
}

func (m *BzzAddress) appendTo(b []byte) []byte {
	b = appendBytesField(b, bzzUnderlay, m.Underlay)
	b = appendBytesField(b, bzzSignature, m.Signature)
	return appendBytesField(b, bzzOverlay, m.Overlay)
}

// Unmarshal 解码
func (m *BzzAddress) Unmarshal(data []byte) error {
	*m = BzzAddress{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case bzzUnderlay:
			return consumeBytes(typ, b, &m.Underlay)
		case bzzSignature:
			return consumeBytes(typ, b, &m.Signature)
		case bzzOverlay:
			return consumeBytes(typ, b, &m.Overlay)
		}
		return skipField(num, typ, b)
	})
}

// ---------------------------------------------------------------------------
// Ack

// Marshal 编码
func (m *Ack) Marshal() ([]byte, error) {
	return m.appendTo(nil), nil
}

func (m *Ack) appendTo(b []byte) []byte {
	if m.Address != nil {
		b = protowire.AppendTag(b, ackAddress, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Address.appendTo(nil))
	}
	if m.NetworkID != 0 {
		b = protowire.AppendTag(b, ackNetworkID, protowire.VarintType)
		b = protowire.AppendVarint(b, m.NetworkID)
	}
	if m.FullNode {
		b = protowire.AppendTag(b, ackFullNode, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendBytesField(b, ackNonce, m.Nonce)
	if m.WelcomeMessage != "" {
		b = protowire.AppendTag(b, ackWelcomeMessage, protowire.BytesType)
		b = protowire.AppendString(b, m.WelcomeMessage)
	}
	return b
}

// Unmarshal 解码
func (m *Ack) Unmarshal(data []byte) error {
	*m = Ack{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case ackAddress:
			var raw []byte
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}
			m.Address = &BzzAddress{}
			return n, m.Address.Unmarshal(raw)
		case ackNetworkID:
			return consumeVarint(typ, b, &m.NetworkID)
		case ackFullNode:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			m.FullNode = protowire.DecodeBool(v)
			return n, err
		case ackNonce:
			return consumeBytes(typ, b, &m.Nonce)
		case ackWelcomeMessage:
			var raw []byte
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}
			if !utf8.Valid(raw) {
				return n, ErrInvalidUTF8
			}
			m.WelcomeMessage = string(raw)
			return n, nil
		}
		return skipField(num, typ, b)
	})
}

// ---------------------------------------------------------------------------
// SynAck

// Marshal 编码
func (m *SynAck) Marshal() ([]byte, error) {
	var b []byte
	if m.Syn != nil {
		b = protowire.AppendTag(b, synAckSyn, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Syn.appendTo(nil))
	}
	if m.Ack != nil {
		b = protowire.AppendTag(b, synAckAck, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Ack.appendTo(nil))
	}
	return b, nil
}

// Unmarshal 解码
func (m *SynAck) Unmarshal(data []byte) error {
	*m = SynAck{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var raw []byte
		switch num {
		case synAckSyn:
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}
			m.Syn = &Syn{}
			return n, m.Syn.Unmarshal(raw)
		case synAckAck:
			n, err := consumeBytes(typ, b, &raw)
			if err != nil {
				return n, err
			}
			m.Ack = &Ack{}
			return n, m.Ack.Unmarshal(raw)
		}
		return skipField(num, typ, b)
	})
}

// ---------------------------------------------------------------------------
// helpers

// walkFields 逐字段遍历，fn 返回消费的字节数
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		data = data[m:]
	}
	return nil
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, ErrWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, ErrWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
