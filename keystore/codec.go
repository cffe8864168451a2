// Package keystore implements the on-disk encrypted key format: a JSON
// document bit-compatible with the Web3 Secret Storage v3 specification
// (scrypt KDF, AES-128-CTR cipher, Keccak-256 MAC). It holds no opinion on
// what the plaintext bytes mean — the custody engine decides whether they
// are a secp256k1 scalar, an ed25519 keypair, or an imported blob.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"

	"github.com/hotvault/hotvault/zero"
)

// Default scrypt parameters written into freshly created keystores.
// log2(DefaultN) == 13 — a decoder must still honor whatever the file says.
const (
	DefaultN     = 8192
	DefaultR     = 8
	DefaultP     = 1
	DefaultDKLen = 32

	saltLen = 32
	ivLen   = 16
	macLen  = 32
)

var (
	// ErrUnsupportedVersion is returned for any version field other than 3.
	ErrUnsupportedVersion = errors.New("keystore: unsupported version")
	// ErrUnsupportedCipher is returned for any cipher other than aes-128-ctr.
	ErrUnsupportedCipher = errors.New("keystore: unsupported cipher")
	// ErrUnsupportedKDF is returned for any kdf other than scrypt.
	ErrUnsupportedKDF = errors.New("keystore: unsupported kdf")
	// ErrMacMismatch is returned when the stored MAC does not match the
	// MAC recomputed from the supplied password. Never reveals plaintext.
	ErrMacMismatch = errors.New("keystore: mac mismatch")
	// ErrInvalidParams flags a structurally invalid file (bad lengths, n
	// not a power of two, and so on) before any crypto is attempted.
	ErrInvalidParams = errors.New("keystore: invalid params")
	// ErrBadKeyLen is returned when the derived AES key is the wrong size
	// for aes.NewCipher, which should only happen if DefaultDKLen (or a
	// file's own dklen) is misconfigured.
	ErrBadKeyLen = errors.New("keystore: invalid aes key length")
)

// CipherParams holds the AES-128-CTR initialization vector.
type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams holds the scrypt parameters used to derive the encryption and
// MAC keys from the caller-supplied password.
type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

// Crypto is the "crypto" object of a keystore v3 document.
type Crypto struct {
	Cipher       string       `json:"cipher"`
	CipherParams CipherParams `json:"cipherparams"`
	CipherText   string       `json:"ciphertext"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

// File is a complete keystore v3 document.
type File struct {
	Version int    `json:"version"`
	Crypto  Crypto `json:"crypto"`
}

// Encrypt seals plaintext under password into a fresh keystore v3 File
// using the default KDF parameters. The caller owns plaintext and password
// and is responsible for zeroizing them; Encrypt zeroizes its own
// intermediates (the derived key and its two halves) before returning.
func Encrypt(plaintext, password []byte) (*File, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: read salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("keystore: read iv: %w", err)
	}

	dk, err := scrypt.Key(password, salt, DefaultN, DefaultR, DefaultP, DefaultDKLen)
	if err != nil {
		return nil, fmt.Errorf("keystore: scrypt: %w", err)
	}
	defer zero.Bytes(dk)

	encKey, macKey := dk[:16], dk[16:32]

	ciphertext := make([]byte, len(plaintext))
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyLen, err)
	}
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plaintext)

	mac := keccak256(macKey, ciphertext)

	return &File{
		Version: 3,
		Crypto: Crypto{
			Cipher:       "aes-128-ctr",
			CipherParams: CipherParams{IV: encodeHex(iv)},
			CipherText:   encodeHex(ciphertext),
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DKLen: DefaultDKLen,
				N:     DefaultN,
				R:     DefaultR,
				P:     DefaultP,
				Salt:  encodeHex(salt),
			},
			MAC: encodeHex(mac),
		},
	}, nil
}

// Decrypt validates f's structure, re-derives the KDF output from password
// and f's own stated parameters, checks the MAC in constant time, and only
// then decrypts. Returns ErrMacMismatch without revealing any plaintext
// bytes on a bad password or corrupted file.
func Decrypt(f *File, password []byte) ([]byte, error) {
	if f.Version != 3 {
		return nil, ErrUnsupportedVersion
	}
	if f.Crypto.Cipher != "aes-128-ctr" {
		return nil, ErrUnsupportedCipher
	}
	if f.Crypto.KDF != "scrypt" {
		return nil, ErrUnsupportedKDF
	}

	salt, err := decodeHex(f.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrInvalidParams, err)
	}
	iv, err := decodeHex(f.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrInvalidParams, err)
	}
	ciphertext, err := decodeHex(f.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidParams, err)
	}
	storedMAC, err := decodeHex(f.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: mac: %v", ErrInvalidParams, err)
	}

	if len(iv) != ivLen {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrInvalidParams, ivLen)
	}
	if len(storedMAC) != macLen {
		return nil, fmt.Errorf("%w: mac must be %d bytes", ErrInvalidParams, macLen)
	}
	n := f.Crypto.KDFParams.N
	if n <= 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: n must be a power of two", ErrInvalidParams)
	}
	if bits.Len(uint(n))-1 > 255 {
		return nil, fmt.Errorf("%w: log2(n) out of range", ErrInvalidParams)
	}

	dk, err := scrypt.Key(password, salt, n, f.Crypto.KDFParams.R, f.Crypto.KDFParams.P, f.Crypto.KDFParams.DKLen)
	if err != nil {
		return nil, fmt.Errorf("keystore: scrypt: %w", err)
	}
	defer zero.Bytes(dk)
	if len(dk) < 32 {
		return nil, fmt.Errorf("%w: dklen too short", ErrInvalidParams)
	}
	encKey, macKey := dk[:16], dk[16:32]

	computedMAC := keccak256(macKey, ciphertext)
	if subtle.ConstantTimeCompare(storedMAC, computedMAC) != 1 {
		return nil, ErrMacMismatch
	}

	plaintext := make([]byte, len(ciphertext))
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyLen, err)
	}
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Marshal renders f as indented, human-readable JSON.
func Marshal(f *File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// Unmarshal parses a keystore v3 JSON document.
func Unmarshal(b []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("keystore: parse: %w", err)
	}
	return &f, nil
}
