// Command node 运行 Swarm 握手节点，并提供离线的地址工具
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "node",
	Short: "Swarm 握手节点",
	Long: `Swarm 握手节点

在 libp2p 上实现 /swarm/handshake/11.0.0/handshake 协议：
- 由链上地址、网络ID与 nonce 推导 overlay 地址
- 对 underlay/overlay/网络ID 签名并验证对端地址
- 调试 HTTP 接口查看地址簿与手动拨号`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(startCmd(), overlayCmd(), keygenCmd(), versionCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
