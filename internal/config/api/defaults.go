package api

import "time"

// 调试API默认配置值
const (
	// defaultHTTPEnabled 默认启用调试API
	defaultHTTPEnabled = true

	// defaultHTTPHost 调试接口默认只监听本机
	defaultHTTPHost = "127.0.0.1"

	// defaultHTTPPort 调试API端口
	defaultHTTPPort = 1635

	// defaultHTTPReadTimeout HTTP读取超时
	defaultHTTPReadTimeout = 15 * time.Second

	// defaultHTTPWriteTimeout HTTP写入超时，需大于一次握手的超时
	defaultHTTPWriteTimeout = 30 * time.Second

	// defaultMaxRequestSize 最大请求大小 64KB
	defaultMaxRequestSize = 64 * 1024

	// defaultWriteRateLimit 每个客户端每秒允许的写请求数
	defaultWriteRateLimit = 2.0

	// defaultWriteBurst 写请求突发上限
	defaultWriteBurst = 5
)
