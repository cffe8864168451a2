package custody

import (
	"encoding/hex"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// generateEVMScalar draws a fresh secp256k1 private scalar via
// go-ethereum's crypto.GenerateKey.
func generateEVMScalar() ([]byte, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEcdsaError, err)
	}
	return gethcrypto.FromECDSA(key), nil
}

// evmAddress derives the lowercase 0x-prefixed EVM address from a raw
// 32-byte secp256k1 scalar: uncompressed SEC1 pubkey (04||X||Y), then
// keccak256(X||Y)[12:32].
func evmAddress(scalar []byte) (string, error) {
	key, err := gethcrypto.ToECDSA(scalar)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEcdsaError, err)
	}
	addr := gethcrypto.PubkeyToAddress(key.PublicKey)
	// Lowercase 0x-prefixed hex, not go-ethereum's EIP-55 checksum casing
	// (Address.Hex()).
	return "0x" + hex.EncodeToString(addr.Bytes()), nil
}
