package badger

// 状态存储默认配置值
// 节点只持久化少量身份状态（nonce），因此内存表取较小值
const (
	defaultEngine = EngineBadger

	// defaultPath 默认数据库路径
	defaultPath = "./data/badger"

	// defaultSyncWrites nonce 写入后必须落盘，否则重启会得到不同的 overlay
	defaultSyncWrites = true

	// defaultMemTableSize 内存表大小 8MB
	defaultMemTableSize = 8 << 20
)
