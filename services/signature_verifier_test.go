package services

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) (*SignatureVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey).Hex()

	v, err := NewSignatureVerifier(
		"OceanX Claims", "1", 1,
		"0x00000000000000000000000000000000000000cc",
		signer,
	)
	require.NoError(t, err)
	return v, key
}

func signPayload(t *testing.T, v *SignatureVerifier, key *ecdsa.PrivateKey, p ClaimPayload) string {
	t.Helper()
	digest, err := v.Digest(p)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(sig)
}

func testPayload() ClaimPayload {
	return ClaimPayload{
		ClaimID:   "claim-abc",
		Wallet:    "0x1111111111111111111111111111111111111111",
		Amount:    "250",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifyValidSignature(t *testing.T) {
	v, key := newTestVerifier(t)
	p := testPayload()

	valid, reason := v.Verify(p, signPayload(t, v, key, p))
	assert.True(t, valid, reason)
}

func TestVerifyAcceptsWalletStyleRecoveryID(t *testing.T) {
	v, key := newTestVerifier(t)
	p := testPayload()

	sigHex := signPayload(t, v, key, p)
	raw, err := hex.DecodeString(sigHex[2:])
	require.NoError(t, err)
	raw[64] += 27 // wallets emit V as 27/28

	valid, reason := v.Verify(p, "0x"+hex.EncodeToString(raw))
	assert.True(t, valid, reason)
}

func TestVerifyRejectsMutatedFields(t *testing.T) {
	v, key := newTestVerifier(t)
	p := testPayload()
	sig := signPayload(t, v, key, p)

	mutations := map[string]ClaimPayload{
		"amount":  {ClaimID: p.ClaimID, Wallet: p.Wallet, Amount: "9999", ExpiresAt: p.ExpiresAt},
		"wallet":  {ClaimID: p.ClaimID, Wallet: "0x2222222222222222222222222222222222222222", Amount: p.Amount, ExpiresAt: p.ExpiresAt},
		"claimId": {ClaimID: "claim-other", Wallet: p.Wallet, Amount: p.Amount, ExpiresAt: p.ExpiresAt},
		"expiry":  {ClaimID: p.ClaimID, Wallet: p.Wallet, Amount: p.Amount, ExpiresAt: p.ExpiresAt + 86400},
	}
	for field, mutated := range mutations {
		valid, _ := v.Verify(mutated, sig)
		assert.False(t, valid, "mutated %s must not verify", field)
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	v, _ := newTestVerifier(t)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := testPayload()

	valid, reason := v.Verify(p, signPayload(t, v, otherKey, p))
	assert.False(t, valid)
	assert.Equal(t, "recovered signer is not authorized", reason)
}

func TestVerifyRejectsMalformedSignatures(t *testing.T) {
	v, _ := newTestVerifier(t)
	p := testPayload()

	cases := map[string]string{
		"empty":       "",
		"not hex":     "0xzz",
		"too short":   "0xdeadbeef",
		"bad rec id":  "0x" + hex.EncodeToString(make([]byte, 64)) + "05",
	}
	for name, sig := range cases {
		valid, reason := v.Verify(p, sig)
		assert.False(t, valid, name)
		assert.NotEmpty(t, reason, name)
	}
}

func TestVerifyRejectsMalformedPayload(t *testing.T) {
	v, key := newTestVerifier(t)
	p := testPayload()
	sig := signPayload(t, v, key, p)

	noID := p
	noID.ClaimID = ""
	valid, _ := v.Verify(noID, sig)
	assert.False(t, valid)

	badAmount := p
	badAmount.Amount = "12.5"
	valid, _ = v.Verify(badAmount, sig)
	assert.False(t, valid)
}

func TestTruncateSig(t *testing.T) {
	assert.Equal(t, "0xdeadbeef", TruncateSig("0xdeadbeef"))
	long := "0x" + "ab" + "cd" + "ef" + "0123456789abcdef"
	assert.Len(t, []rune(TruncateSig(long)), 13)
}
