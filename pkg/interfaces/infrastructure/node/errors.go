package node

import "errors"

// ErrProtocolNotSupported 对端未注册所请求的协议
var ErrProtocolNotSupported = errors.New("protocol not supported by remote peer")

// ErrHostNotStarted Host 尚未启动
var ErrHostNotStarted = errors.New("node host not started")
