// Package node 提供节点网络服务工厂实现
package node

import (
	nodeconfig "github.com/weisyn/handshake/internal/config/node"
	hostpkg "github.com/weisyn/handshake/internal/core/infrastructure/node/impl/host"
	cfgprovider "github.com/weisyn/handshake/pkg/interfaces/config"
	logiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/log"
	nodeiface "github.com/weisyn/handshake/pkg/interfaces/infrastructure/node"
)

// ServiceInput 定义节点服务工厂的输入参数
type ServiceInput struct {
	Provider cfgprovider.Provider
	Logger   logiface.Logger
}

// ServiceOutput 定义节点服务工厂的输出结果
type ServiceOutput struct {
	HostRuntime *hostpkg.Runtime
	Host        nodeiface.Host
	service     *hostService
}

// CreateNodeServices 创建节点网络服务
// Host 在 Runtime.Start 时才真正构建，此处仅装配运行时与适配层
func CreateNodeServices(input ServiceInput) (ServiceOutput, error) {
	var nodeOpts *nodeconfig.NodeOptions
	if input.Provider != nil {
		nodeOpts = input.Provider.GetNode()
	}
	if nodeOpts == nil {
		nodeOpts = nodeconfig.New(nil).GetOptions()
	}

	hostRuntime, err := hostpkg.NewRuntime(nodeOpts, input.Logger)
	if err != nil {
		return ServiceOutput{}, err
	}

	service := newHostService(hostRuntime)

	return ServiceOutput{
		HostRuntime: hostRuntime,
		Host:        service,
		service:     service,
	}, nil
}
