package swarm

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/key"
	"github.com/weisyn/handshake/internal/core/infrastructure/crypto/signature"
)

// newTestSigner 生成测试用链身份
func newTestSigner(t *testing.T) *signature.EthSigner {
	t.Helper()
	pk, err := key.NewKeyManager().Generate()
	require.NoError(t, err)
	signer, err := signature.NewEthSigner(pk)
	require.NoError(t, err)
	return signer
}

// failingSigner 签名总是失败
type failingSigner struct{ address common.Address }

func (f failingSigner) Sign([]byte) ([]byte, error)              { return nil, errors.New("hsm unavailable") }
func (f failingSigner) PublicKey() (*ecdsa.PublicKey, error)     { return nil, errors.New("hsm unavailable") }
func (f failingSigner) EthereumAddress() (common.Address, error) { return f.address, nil }

var testUnderlay = ma.StringCast("/ip4/127.0.0.1/tcp/1634")

func TestNodeAddress_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	chain, err := signer.EthereumAddress()
	require.NoError(t, err)

	var zero Nonce
	addr, sig, err := NewNodeAddress(signer, 1, &zero, testUnderlay)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)

	assert.Equal(t, chain, addr.Chain())
	assert.Equal(t, DeriveOverlay(chain, 1, &zero), addr.Overlay())

	overlay := addr.Overlay()
	parsed, err := ParseNodeAddress(signature.NewRecoverer(), testUnderlay.Bytes(), overlay[:], sig, zero[:], true, 1)
	require.NoError(t, err)

	assert.Equal(t, chain, parsed.Chain())
	assert.Equal(t, addr.Overlay(), parsed.Overlay())
	assert.True(t, parsed.Underlay().Equal(testUnderlay))
	assert.True(t, addr.Equal(parsed))
}

func TestNodeAddress_EmptyNonceOnWire(t *testing.T) {
	signer := newTestSigner(t)
	addr, sig, err := NewNodeAddress(signer, 1, nil, testUnderlay)
	require.NoError(t, err)

	overlay := addr.Overlay()
	// 空 nonce 与全零 nonce 等价
	_, err = ParseNodeAddress(signature.NewRecoverer(), testUnderlay.Bytes(), overlay[:], sig, nil, true, 1)
	assert.NoError(t, err)
}

func TestParseNodeAddress_Errors(t *testing.T) {
	signer := newTestSigner(t)
	recoverer := signature.NewRecoverer()

	addr, sig, err := NewNodeAddress(signer, 1, nil, testUnderlay)
	require.NoError(t, err)
	overlay := addr.Overlay()
	underlay := testUnderlay.Bytes()

	other := newTestSigner(t)
	otherChain, _ := other.EthereumAddress()
	otherOverlay := DeriveOverlay(otherChain, 1, nil)
	otherAddr, otherSig, err := NewNodeAddress(other, 1, nil, testUnderlay)
	require.NoError(t, err)
	require.Equal(t, otherOverlay, otherAddr.Overlay())

	tamperedSig := append([]byte{}, sig...)
	tamperedSig[10] ^= 0xff

	tamperedUnderlay := ma.StringCast("/ip4/127.0.0.2/tcp/1634").Bytes()

	tests := []struct {
		name      string
		underlay  []byte
		overlay   []byte
		sig       []byte
		nonce     []byte
		validate  bool
		networkID uint64
		wantErr   error
		wantChain *common.Address
	}{
		{"签名过短", underlay, overlay[:], sig[:64], nil, true, 1, ErrSignatureLengthMismatch, nil},
		{"签名过长", underlay, overlay[:], append(append([]byte{}, sig...), 0), nil, true, 1, ErrSignatureLengthMismatch, nil},
		{"空签名", underlay, overlay[:], nil, nil, true, 1, ErrSignatureLengthMismatch, nil},
		{"非法恢复ID", underlay, overlay[:], append(append([]byte{}, sig[:64]...), 9), nil, true, 1, ErrSignatureMismatch, nil},
		{"篡改签名", underlay, overlay[:], tamperedSig, nil, true, 1, nil, nil},
		{"篡改underlay", tamperedUnderlay, overlay[:], sig, nil, true, 1, ErrOverlayMismatch, nil},
		{"网络ID不同", underlay, overlay[:], sig, nil, true, 2, ErrOverlayMismatch, nil},
		{"冒用他人overlay", underlay, otherOverlay[:], sig, nil, true, 1, ErrOverlayMismatch, nil},
		{"nonce不同", underlay, overlay[:], sig, bytes.Repeat([]byte{1}, 32), true, 1, ErrOverlayMismatch, nil},
		{"nonce长度错误", underlay, overlay[:], sig, []byte{1}, true, 1, ErrOverlayMismatch, nil},
		{"overlay长度错误", underlay, overlay[:31], sig, nil, false, 1, ErrOverlayMismatch, nil},
		{"underlay无法解码", []byte{0xff, 0xff}, overlay[:], sig, nil, false, 1, ErrUnderlayDecodeFailed, nil},
		{"他人签名的合法地址", underlay, otherOverlay[:], otherSig, nil, true, 1, nil, &otherChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseNodeAddress(recoverer, tt.underlay, tt.overlay, tt.sig, tt.nonce, tt.validate, tt.networkID)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, parsed)
			case tt.wantChain != nil:
				require.NoError(t, err)
				assert.Equal(t, *tt.wantChain, parsed.Chain())
			default:
				// 篡改后的签名要么恢复失败，要么恢复出其他地址导致 overlay 不匹配
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSignatureMismatch) || errors.Is(err, ErrOverlayMismatch), err.Error())
			}
		})
	}
}

func TestParseNodeAddress_SkipOverlayValidation(t *testing.T) {
	signer := newTestSigner(t)
	recoverer := signature.NewRecoverer()
	chain, _ := signer.EthereumAddress()

	// 签名者声明一个不属于自己的 overlay：仅跳过绑定校验时被接受
	bogus := DeriveOverlay(common.HexToAddress("0x01"), 1, nil)
	payload := signedPayload(testUnderlay.Bytes(), bogus[:], 1)
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	_, err = ParseNodeAddress(recoverer, testUnderlay.Bytes(), bogus[:], sig, nil, true, 1)
	assert.ErrorIs(t, err, ErrOverlayMismatch)

	parsed, err := ParseNodeAddress(recoverer, testUnderlay.Bytes(), bogus[:], sig, nil, false, 1)
	require.NoError(t, err)
	assert.Equal(t, bogus, parsed.Overlay())
	assert.Equal(t, chain, parsed.Chain(), "恢复出的签名者始终为权威链地址")

	// 跳过绑定校验不会跳过签名长度检查
	_, err = ParseNodeAddress(recoverer, testUnderlay.Bytes(), bogus[:], sig[:10], nil, false, 1)
	assert.ErrorIs(t, err, ErrSignatureLengthMismatch)

	// 长度正确但无法恢复公钥的签名同样被拒绝
	badV := bytes.Clone(sig)
	badV[64] = 9
	_, err = ParseNodeAddress(recoverer, testUnderlay.Bytes(), bogus[:], badV, nil, false, 1)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	zeroRS := make([]byte, len(sig))
	zeroRS[64] = sig[64]
	parsed, err = ParseNodeAddress(recoverer, testUnderlay.Bytes(), bogus[:], zeroRS, nil, false, 1)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Nil(t, parsed)
}

func TestSignedPayload_Layout(t *testing.T) {
	overlay := bytes.Repeat([]byte{0xaa}, 32)
	payload := signedPayload([]byte{1, 2, 3}, overlay, 0x0102030405060708)

	expected := append([]byte("bee-handshake-"), 1, 2, 3)
	expected = append(expected, overlay...)
	expected = append(expected, 1, 2, 3, 4, 5, 6, 7, 8)
	assert.Equal(t, expected, payload)
}

func TestNewNodeAddress_SigningFailure(t *testing.T) {
	addr, sig, err := NewNodeAddress(failingSigner{address: testChain}, 1, nil, testUnderlay)
	assert.ErrorIs(t, err, ErrSigning)
	assert.Nil(t, addr)
	assert.Nil(t, sig)

	_, _, err = NewNodeAddress(nil, 1, nil, testUnderlay)
	assert.ErrorIs(t, err, ErrSigning)
}

func TestNodeAddress_ConcurrentSigning(t *testing.T) {
	signer := newTestSigner(t)
	recoverer := signature.NewRecoverer()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(networkID uint64) {
			defer wg.Done()
			addr, sig, err := NewNodeAddress(signer, networkID, nil, testUnderlay)
			if err != nil {
				errs <- err
				return
			}
			overlay := addr.Overlay()
			if _, err := ParseNodeAddress(recoverer, testUnderlay.Bytes(), overlay[:], sig, nil, true, networkID); err != nil {
				errs <- err
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNodeAddress_JSON(t *testing.T) {
	signer := newTestSigner(t)
	addr, _, err := NewNodeAddress(signer, 1, nil, testUnderlay)
	require.NoError(t, err)

	data, err := json.Marshal(addr)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "/ip4/127.0.0.1/tcp/1634", decoded["underlay"])
	assert.Equal(t, addr.Overlay().String(), decoded["overlay"])
	assert.Equal(t, addr.Chain().Hex(), common.HexToAddress(decoded["chain"]).Hex())
}
