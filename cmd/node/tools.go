package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/handshake/internal/app/version"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/key"
	"github.com/weisyn/handshake/internal/core/swarm"
)

// overlayCmd 离线计算 overlay 地址
func overlayCmd() *cobra.Command {
	var (
		address   string
		networkID uint64
		nonceHex  string
	)

	cmd := &cobra.Command{
		Use:     "overlay",
		Short:   "由链上地址、网络ID与nonce计算overlay地址",
		Example: "  node overlay --address 0x1815cac638d1525b47f848daf02b7953e4edd15c --network-id 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(address) {
				return fmt.Errorf("无效的以太坊地址: %q", address)
			}
			var nonce *swarm.Nonce
			if nonceHex != "" {
				n, err := swarm.ParseHexNonce(nonceHex)
				if err != nil {
					return fmt.Errorf("无效的 nonce: %w", err)
				}
				nonce = n
			}

			overlay := swarm.DeriveOverlay(common.HexToAddress(address), networkID, nonce)
			fmt.Fprintln(cmd.OutOrStdout(), overlay.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "20字节以太坊地址（必需）")
	cmd.Flags().Uint64Var(&networkID, "network-id", 1, "网络ID")
	cmd.Flags().StringVar(&nonceHex, "nonce", "", "32字节 nonce（hex），为空时按全零计算")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

// keygenCmd 生成链身份私钥
func keygenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "生成 secp256k1 链身份私钥",
		RunE: func(cmd *cobra.Command, args []string) error {
			km := key.NewKeyManager()
			pk, created, err := km.LoadOrGenerate(out)
			if err != nil {
				return err
			}
			signerAddr := crypto.PubkeyToAddress(pk.PublicKey)
			if created {
				pterm.Success.Printfln("已生成私钥 %s", out)
			} else {
				pterm.Warning.Printfln("%s 已存在，沿用原私钥", out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signerAddr.Hex())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "私钥文件路径（必需）")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		},
	}
}
