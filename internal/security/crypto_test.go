package security

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Keypair Generation ─────────────────────────────────────────────────────

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	assert.Len(t, kp.Public, 32)
	assert.Len(t, kp.Private, 64)
}

func TestGenerateKeypair_Unique(t *testing.T) {
	kp1, _ := GenerateKeypair()
	kp2, _ := GenerateKeypair()
	assert.NotEqual(t, kp1.Address(), kp2.Address())
}

func TestAddress(t *testing.T) {
	kp, _ := GenerateKeypair()
	addr := kp.Address()

	assert.True(t, strings.HasPrefix(addr, AddressPrefix))
	assert.Len(t, addr, len(AddressPrefix)+40)
	assert.Equal(t, addr, kp.Address(), "address is deterministic")
}

// ─── Sign / Verify ──────────────────────────────────────────────────────────

func TestSignVerify(t *testing.T) {
	kp, _ := GenerateKeypair()
	message := []byte(`{"proposal_id":1}`)

	sig := kp.Sign(message)
	assert.Len(t, sig, 64)
	assert.True(t, Verify(message, sig, kp.Public))
	assert.False(t, Verify([]byte(`{"proposal_id":2}`), sig, kp.Public), "tampered message")

	other, _ := GenerateKeypair()
	assert.False(t, Verify(message, sig, other.Public), "wrong key")
}

func TestVerifyHex(t *testing.T) {
	kp, _ := GenerateKeypair()
	message := []byte("receipt")
	sig := hex.EncodeToString(kp.Sign(message))

	assert.True(t, VerifyHex(message, sig, kp.PublicKeyHex()))
	assert.False(t, VerifyHex(message, "zz", kp.PublicKeyHex()))
	assert.False(t, VerifyHex(message, sig, "abcd"))
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestLoadOrCreateKeypair_CreatesThenLoads(t *testing.T) {
	home := t.TempDir()

	kp1, err := LoadOrCreateKeypair(home)
	require.NoError(t, err)

	keyDir := filepath.Join(home, "keys")
	assert.FileExists(t, filepath.Join(keyDir, "multisig.pub"))
	assert.FileExists(t, filepath.Join(keyDir, "multisig.key"))

	kp2, err := LoadOrCreateKeypair(home)
	require.NoError(t, err)
	assert.Equal(t, kp1.Address(), kp2.Address())

	sig := kp1.Sign([]byte("persistent identity"))
	assert.True(t, Verify([]byte("persistent identity"), sig, kp2.Public))
}

func TestLoadOrCreateKeypair_RejectsMismatchedKeys(t *testing.T) {
	home := t.TempDir()
	_, err := LoadOrCreateKeypair(home)
	require.NoError(t, err)

	other, _ := GenerateKeypair()
	pubPath := filepath.Join(home, "keys", "multisig.pub")
	require.NoError(t, os.WriteFile(pubPath, []byte(other.PublicKeyHex()), 0644))

	_, err = LoadOrCreateKeypair(home)
	assert.Error(t, err)
}

func TestLoadOrCreateKeypair_RejectsCorruptKeys(t *testing.T) {
	home := t.TempDir()
	keyDir := filepath.Join(home, "keys")
	require.NoError(t, os.MkdirAll(keyDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(keyDir, "multisig.pub"), []byte("not hex"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(keyDir, "multisig.key"), []byte("abcd"), 0600))

	_, err := LoadOrCreateKeypair(home)
	assert.Error(t, err)
}
