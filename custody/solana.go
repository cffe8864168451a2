package custody

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// generateSolanaKeypair draws a fresh ed25519 keypair and returns the
// expanded 64-byte private key (seed||pub), the same byte layout
// crypto/ed25519 signs with directly — this is what gets stored as the
// keystore plaintext.
func generateSolanaKeypair() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("custody: generate ed25519 key: %w", err)
	}
	return []byte(priv), nil
}

// solanaAddress renders the public half of a stored ed25519 keypair as
// base58, Solana's standard address encoding.
func solanaAddress(keypair []byte) (string, error) {
	if len(keypair) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: expected %d-byte ed25519 keypair, got %d", ErrBadBody, ed25519.PrivateKeySize, len(keypair))
	}
	pub := ed25519.PrivateKey(keypair).Public().(ed25519.PublicKey)
	return base58.Encode(pub), nil
}
