package handshake

import (
	"fmt"
	"sync/atomic"
)

// State 单次握手会话状态
//
//	Idle → SynSent     → AckExchanged → Closed   （发起方）
//	Idle → SynReceived → AckExchanged → Closed   （响应方）
//
// 任意状态都可进入 Failed。
type State int32

const (
	StateIdle State = iota
	StateSynSent
	StateSynReceived
	StateAckExchanged
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSynSent:
		return "syn_sent"
	case StateSynReceived:
		return "syn_received"
	case StateAckExchanged:
		return "ack_exchanged"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Role 会话角色
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

// allowedTransitions 合法状态迁移（Failed 另行处理）
var allowedTransitions = map[State][]State{
	StateIdle:         {StateSynSent, StateSynReceived},
	StateSynSent:      {StateAckExchanged},
	StateSynReceived:  {StateAckExchanged},
	StateAckExchanged: {StateClosed},
}

// session 单次握手的状态记录，绑定一条流
type session struct {
	role  Role
	state atomic.Int32
}

func newSession(role Role) *session {
	return &session{role: role}
}

// State 当前状态
func (s *session) State() State {
	return State(s.state.Load())
}

// advance 迁移到下一状态，非法迁移返回错误
func (s *session) advance(next State) error {
	cur := s.State()
	for _, allowed := range allowedTransitions[cur] {
		if allowed == next && s.state.CompareAndSwap(int32(cur), int32(next)) {
			return nil
		}
	}
	return fmt.Errorf("illegal handshake transition %s -> %s", cur, next)
}

// fail 进入 Failed，终态不可离开
func (s *session) fail() {
	s.state.Store(int32(StateFailed))
}
