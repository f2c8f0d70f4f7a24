package solana

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key for transaction authoring.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 parses a base58-encoded 64-byte secret key, the format
// exported by solana-keygen and most wallets.
func KeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// KeypairFromBytes wraps a raw 64-byte ed25519 private key.
func KeypairFromBytes(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(priv, raw)
	return &Keypair{priv: priv}, nil
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// publicKeyBytes returns the raw 32-byte public key.
func (k *Keypair) publicKeyBytes() []byte {
	return k.priv.Public().(ed25519.PublicKey)
}

// Sign signs a serialized transaction message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// DecodePublicKey parses a base58 address into its raw 32 bytes, requiring
// a canonical point on the ed25519 curve. Program-derived addresses are
// off curve and rejected here; transfer destinations must be wallets.
func DecodePublicKey(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address must be 32 bytes, got %d", len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return nil, fmt.Errorf("address not on ed25519 curve: %w", err)
	}
	return raw, nil
}
