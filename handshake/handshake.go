// Package handshake implements the ephemeral per-request key exchange that
// wraps a disclosed raw key before it crosses the wire: X25519 key
// agreement, HKDF-derived symmetric key, ChaCha20-Poly1305 AEAD seal.
package handshake

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/hotvault/hotvault/zero"
)

const hkdfInfo = "hotvault-read-v1"

// ClientReq is what a client sends to initiate a disclosure: its ephemeral
// X25519 public key.
type ClientReq struct {
	Pubk []byte `json:"pubk"`
}

// ServerEncryptedRes is the server's reply: its own ephemeral public key,
// the AEAD nonce, and the sealed plaintext.
type ServerEncryptedRes struct {
	Pubk       []byte `json:"pubk"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal performs the server side of the handshake: generate a fresh X25519
// keypair, compute the shared secret with the client's public key, derive
// an AEAD key via HKDF-SHA256, and seal plaintext. The raw shared secret
// and the derived AEAD key are zeroized before Seal returns, win or lose.
func Seal(clientPubk []byte, plaintext []byte) (*ServerEncryptedRes, error) {
	curve := ecdh.X25519()

	clientKey, err := curve.NewPublicKey(clientPubk)
	if err != nil {
		return nil, fmt.Errorf("handshake: bad client pubkey: %w", err)
	}

	serverPriv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("handshake: generate ephemeral key: %w", err)
	}

	shared, err := serverPriv.ECDH(clientKey)
	if err != nil {
		return nil, fmt.Errorf("handshake: ecdh: %w", err)
	}
	defer zero.Bytes(shared)

	aeadKey, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(aeadKey)

	aead, err := chacha20poly1305.New(aeadKey)
	if err != nil {
		return nil, fmt.Errorf("handshake: aead init: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("handshake: read nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &ServerEncryptedRes{
		Pubk:       serverPriv.PublicKey().Bytes(),
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// deriveKey stretches a raw 32-byte X25519 shared secret into a 32-byte
// ChaCha20-Poly1305 key via HKDF-SHA256, so the raw ECDH output is never
// used directly as a cipher key.
func deriveKey(shared []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := r.Read(key); err != nil {
		return nil, fmt.Errorf("handshake: hkdf: %w", err)
	}
	return key, nil
}
