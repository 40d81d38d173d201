package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/handshake/configs"
	"github.com/weisyn/handshake/internal/app"
	"github.com/weisyn/handshake/internal/config"
	"github.com/weisyn/handshake/pkg/types"
)

func startCmd() *cobra.Command {
	var (
		configPath string
		profile    string
		dataDir    string
		bootstrap  []string
		noAPI      bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "启动节点",
		Example: `  node start --config ./configs/node.json
  node start --data-dir ./data --bootstrap /ip4/10.0.0.2/tcp/1634/p2p/12D3KooW...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := loadConfig(configPath, profile)
			if err != nil {
				return err
			}
			if dataDir != "" {
				appConfig.DataDir = types.StringPtr(dataDir)
			}
			if len(bootstrap) > 0 {
				if appConfig.Node == nil {
					appConfig.Node = &types.UserNodeConfig{}
				}
				appConfig.Node.BootstrapPeers = append(appConfig.Node.BootstrapPeers, bootstrap...)
			}

			opts := []app.Option{app.WithAppConfig(appConfig)}
			if noAPI {
				opts = append(opts, app.WithoutAPI())
			}

			spinner, _ := pterm.DefaultSpinner.Start("正在启动节点...")
			a, err := app.Start(opts...)
			if err != nil {
				if spinner != nil {
					spinner.Fail(err.Error())
				}
				return err
			}
			if spinner != nil {
				spinner.Success("节点已启动")
			}

			printIdentity(a)
			a.Wait()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径（JSON），为空时使用默认配置")
	cmd.Flags().StringVar(&profile, "profile", "", "使用内嵌配置：node | local（--config 优先）")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "数据目录，覆盖配置中的 data_dir")
	cmd.Flags().StringSliceVar(&bootstrap, "bootstrap", nil, "追加的引导节点地址（含 /p2p/<id>）")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "不启动调试HTTP接口")
	return cmd
}

// loadConfig 按 --config、--profile、默认值的顺序确定配置
func loadConfig(path, profile string) (*types.AppConfig, error) {
	if path != "" || profile == "" {
		return config.LoadAppConfig(path)
	}
	data := configs.Get(profile)
	if data == nil {
		return nil, fmt.Errorf("未知的内嵌配置 %q，可选 node | local", profile)
	}
	return config.ParseAppConfig(data)
}

func printIdentity(a app.App) {
	svc := a.Service()
	mode := "full"
	if !svc.FullNode() {
		mode = "light"
	}
	api := a.APIAddr()
	if api == "" {
		api = "-"
	}

	pterm.DefaultSection.Println("节点身份")
	_ = pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
		{"Overlay", svc.Overlay().String()},
		{"Ethereum", svc.ChainAddress().Hex()},
		{"Network ID", fmt.Sprint(svc.NetworkID())},
		{"Nonce", fmt.Sprintf("%x", svc.Nonce())},
		{"Mode", mode},
		{"Welcome", strings.TrimSpace(svc.GetWelcomeMessage())},
		{"Debug API", api},
	}).Render()
	pterm.Info.Println("按 Ctrl+C 停止")
}
