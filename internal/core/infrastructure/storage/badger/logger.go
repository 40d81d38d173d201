package badger

import (
	"github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
)

// badgerLogger BadgerDB日志适配器
// Badger 的 Info 级别输出较多，统一降为 Debug
type badgerLogger struct {
	logger log.Logger
}

// newBadgerLogger 创建BadgerDB日志适配器，logger 为 nil 时丢弃输出
func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

// Errorf 输出错误日志
func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Errorf("[BadgerDB] "+format, args...)
	}
}

// Warningf 输出警告日志
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Warnf("[BadgerDB] "+format, args...)
	}
}

// Infof 输出信息日志
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debugf("[BadgerDB] "+format, args...)
	}
}

// Debugf 输出调试日志
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debugf("[BadgerDB] "+format, args...)
	}
}
