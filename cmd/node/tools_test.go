package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/internal/core/swarm"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd
	root.ResetCommands()
	root.AddCommand(startCmd(), overlayCmd(), keygenCmd(), versionCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestOverlayCommand(t *testing.T) {
	addr := "0x1815cac638d1525b47f848daf02b7953e4edd15c"
	out, err := run(t, "overlay", "--address", addr, "--network-id", "10")
	require.NoError(t, err)
	want := swarm.DeriveOverlay(common.HexToAddress(addr), 10, nil)
	assert.Equal(t, want.String(), out)

	nonce := strings.Repeat("01", swarm.NonceSize)
	out, err = run(t, "overlay", "--address", addr, "--network-id", "1", "--nonce", nonce)
	require.NoError(t, err)
	n, err := swarm.ParseHexNonce(nonce)
	require.NoError(t, err)
	assert.Equal(t, swarm.DeriveOverlay(common.HexToAddress(addr), 1, n).String(), out)
}

func TestOverlayCommand_InvalidInput(t *testing.T) {
	_, err := run(t, "overlay", "--address", "0x1234")
	assert.Error(t, err)

	_, err = run(t, "overlay", "--address", "0x1815cac638d1525b47f848daf02b7953e4edd15c", "--nonce", "abcd")
	assert.Error(t, err)

	_, err = run(t, "overlay")
	assert.Error(t, err, "缺少 --address")
}

func TestKeygenCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.key")

	first, err := run(t, "keygen", "--out", path)
	require.NoError(t, err)
	require.True(t, common.IsHexAddress(lastLine(first)))

	second, err := run(t, "keygen", "--out", path)
	require.NoError(t, err)
	assert.Equal(t, lastLine(first), lastLine(second), "已存在的私钥被沿用")
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", "")
	require.NoError(t, err)
	assert.Nil(t, cfg.Handshake)

	cfg, err = loadConfig("", "local")
	require.NoError(t, err)
	require.NotNil(t, cfg.Handshake)
	assert.Equal(t, uint64(10), *cfg.Handshake.NetworkID)

	_, err = loadConfig("", "unknown")
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"), "local")
	assert.Error(t, err, "--config 优先于 --profile")
}
