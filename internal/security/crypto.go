// Package security provides the multisig's cryptographic identity.
// The multisig holds one Ed25519 keypair: its address is derived from the
// public key, and every execution receipt is signed with the private key.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AddressPrefix starts every multisig address.
const AddressPrefix = "multisig1"

// Keypair holds the multisig's Ed25519 identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a new Ed25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// LoadOrCreateKeypair loads the keypair from home/keys/, or generates
// and stores a new one on first run.
func LoadOrCreateKeypair(home string) (*Keypair, error) {
	keyDir := filepath.Join(home, "keys")
	pubPath := filepath.Join(keyDir, "multisig.pub")
	privPath := filepath.Join(keyDir, "multisig.key")

	pubBytes, pubErr := os.ReadFile(pubPath)
	privBytes, privErr := os.ReadFile(privPath)
	if pubErr == nil && privErr == nil {
		return decodeKeypair(pubBytes, privBytes)
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(kp.Public)), 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(kp.Private)), 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	return kp, nil
}

func decodeKeypair(pubHex, privHex []byte) (*Keypair, error) {
	pub, err := hex.DecodeString(strings.TrimSpace(string(pubHex)))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	priv, err := hex.DecodeString(strings.TrimSpace(string(privHex)))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("stored keypair has wrong length (pub %d, priv %d)", len(pub), len(priv))
	}
	kp := &Keypair{Public: ed25519.PublicKey(pub), Private: ed25519.PrivateKey(priv)}
	if !kp.Public.Equal(kp.Private.Public()) {
		return nil, fmt.Errorf("stored public key does not match private key")
	}
	return kp, nil
}

// PublicKeyHex returns the public key as a hex string.
func (kp *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public)
}

// Address returns the multisig address: the prefix followed by the first
// 20 bytes of SHA-256(public key), hex encoded.
func (kp *Keypair) Address() string {
	sum := sha256.Sum256(kp.Public)
	return AddressPrefix + hex.EncodeToString(sum[:20])
}

// Sign signs a message with the private key.
func (kp *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}

// Verify checks a signature against a public key.
func Verify(message, signature []byte, publicKey ed25519.PublicKey) bool {
	return ed25519.Verify(publicKey, message, signature)
}

// VerifyHex checks a hex-encoded signature against a hex-encoded public key.
func VerifyHex(message []byte, signatureHex, publicKeyHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return Verify(message, sig, ed25519.PublicKey(pub))
}
