package handshake

import (
	"errors"
	"io"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-msgio"

	"github.com/weisyn/handshake/internal/core/handshake/pb"
)

// DefaultMaxMessageSize 单条握手消息上限
const DefaultMaxMessageSize = 4096

// streamCodec 在流上收发 varint 长度前缀的 protobuf 消息
type streamCodec struct {
	w    msgio.WriteCloser
	r    msgio.ReadCloser
	peer peer.ID
}

func newStreamCodec(rw io.ReadWriter, maxSize int, p peer.ID) *streamCodec {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &streamCodec{
		w:    msgio.NewVarintWriter(rw),
		r:    msgio.NewVarintReaderSize(rw, maxSize),
		peer: p,
	}
}

// writeMsg 编码并写出一条消息
func (c *streamCodec) writeMsg(op string, m pb.Message) error {
	data, err := m.Marshal()
	if err != nil {
		return newError(KindDecode, op, c.peer, err)
	}
	if err := c.w.WriteMsg(data); err != nil {
		return newError(KindTransport, op, c.peer, err)
	}
	return nil
}

// readMsg 读取一条消息并解码
// 超长帧与解码失败为 KindDecode，其余读错误为 KindTransport
func (c *streamCodec) readMsg(op string, m pb.Message) error {
	data, err := c.r.ReadMsg()
	if err != nil {
		if errors.Is(err, msgio.ErrMsgTooLarge) {
			return newError(KindDecode, op, c.peer, err)
		}
		return newError(KindTransport, op, c.peer, err)
	}
	defer c.r.ReleaseMsg(data)

	if err := m.Unmarshal(data); err != nil {
		return newError(KindDecode, op, c.peer, err)
	}
	return nil
}
