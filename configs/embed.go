// Package configs 内嵌的示例配置
package configs

import _ "embed"

// 节点默认配置：持久化数据目录，主网 network_id=1
//
//go:embed node.json
var nodeConfig []byte

// 本地开发配置：内存存储，随机端口
//
//go:embed local.json
var localConfig []byte

// GetNodeConfig 获取节点默认配置
func GetNodeConfig() []byte {
	return nodeConfig
}

// GetLocalConfig 获取本地开发配置
func GetLocalConfig() []byte {
	return localConfig
}

// Get 按名称获取内嵌配置，未知名称返回 nil
func Get(name string) []byte {
	switch name {
	case "node":
		return nodeConfig
	case "local":
		return localConfig
	}
	return nil
}
