package custody

import "errors"

// Every one of these maps to HTTP 500 at the transport layer except
// ErrBadName, which maps to 400: the one input-validation error a client
// can distinguish before any key-bearing work happens.
var (
	ErrBadName      = errors.New("custody: invalid name")
	ErrBadBody      = errors.New("custody: invalid request body")
	ErrKeyExists    = errors.New("custody: key already exists")
	ErrKeyNotExists = errors.New("custody: key does not exist")

	ErrNotDeviceOwner           = errors.New("custody: not device owner")
	ErrFailedToGetEncryptionKey = errors.New("custody: failed to get encryption key")

	ErrMacMismatch           = errors.New("custody: mac mismatch")
	ErrScryptInvalidParams   = errors.New("custody: invalid scrypt params")
	ErrAesInvalidKeyNonceLen = errors.New("custody: invalid aes key or nonce length")
	ErrEcdsaError            = errors.New("custody: ecdsa error")

	ErrIO = errors.New("custody: io error")

	ErrHandshake = errors.New("custody: handshake error")
)
