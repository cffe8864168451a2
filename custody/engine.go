// Package custody implements the key custody engine: generate, address,
// and read, each following a strict validate -> authorize -> fetch master
// -> decrypt/derive -> zeroize ordering. Adapted from a per-key locking,
// sync.Map-of-live-entries keyring design generalized from Tezos/BLS
// signing state to secp256k1/ed25519 generate-address-read operations.
package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hotvault/hotvault/keystore"
	"github.com/hotvault/hotvault/platform"
	"github.com/hotvault/hotvault/zero"
)

// Kind tags which curve/family a stored key belongs to, chosen by which
// generate route created it. The keystore codec itself stays kind-agnostic.
type Kind string

const (
	KindEVM    Kind = "evm"
	KindSolana Kind = "solana"
)

// Engine is the single entry point for every custody operation. It holds
// one lock per key name so concurrent requests against different names
// never serialize on each other, while operations against the same name
// do.
type Engine struct {
	backend platform.Backend
	log     *slog.Logger
	pool    *Pool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine constructs an Engine. backend supplies presence checks, the
// master secret, and the keystore directory; pool runs scrypt and
// presence-check calls off the request-handling goroutine.
func NewEngine(backend platform.Backend, log *slog.Logger, pool *Pool) *Engine {
	return &Engine{backend: backend, log: log, pool: pool, locks: make(map[string]*sync.Mutex)}
}

func (e *Engine) lockFor(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.locks[name]
	if !ok {
		m = &sync.Mutex{}
		e.locks[name] = m
	}
	return m
}

func (e *Engine) store() (*keystore.Store, error) {
	dir := e.backend.Store()
	s, err := keystore.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return s, nil
}

// generate draws plaintext via draw, encrypts it under the master secret,
// and writes it exclusively to name's keystore file. Ordering: validate
// name -> authorize -> fetch master -> draw plaintext -> encrypt -> write
// -> zeroize. KeyExists is checked by the OS-level exclusive create, not a
// separate existence probe, closing the race between two concurrent
// generate calls for the same name.
func (e *Engine) generate(ctx context.Context, name string, draw func() ([]byte, error)) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	lock := e.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	master, err := Run(ctx, e.pool, func() ([]byte, error) {
		return platform.AssertOwnerGetEncryptionKey(e.backend, "generate key "+name)
	})
	if err != nil {
		return translateAuthErr(err)
	}
	defer zero.Bytes(master)

	store, err := e.store()
	if err != nil {
		return err
	}
	if store.Has(name) {
		return ErrKeyExists
	}

	plaintext, err := draw()
	if err != nil {
		return err
	}
	defer zero.Bytes(plaintext)

	file, err := Run(ctx, e.pool, func() (*keystore.File, error) {
		return keystore.Encrypt(plaintext, master)
	})
	if err != nil {
		return translateCryptoErr(err)
	}

	if err := store.Create(name, file); err != nil {
		if err == keystore.ErrExists {
			return ErrKeyExists
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// GenerateEVM draws a fresh secp256k1 scalar for name.
func (e *Engine) GenerateEVM(ctx context.Context, name string) error {
	return e.generate(ctx, name, generateEVMScalar)
}

// GenerateSolana draws a fresh ed25519 keypair for name.
func (e *Engine) GenerateSolana(ctx context.Context, name string) error {
	return e.generate(ctx, name, generateSolanaKeypair)
}

// read decrypts name's plaintext key. Ordering: validate name -> authorize
// -> fetch master -> load file -> decrypt -> zeroize master (plaintext is
// returned to the caller, who owns zeroizing it after use).
func (e *Engine) read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	lock := e.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	master, err := Run(ctx, e.pool, func() ([]byte, error) {
		return platform.AssertOwnerGetEncryptionKey(e.backend, "read key "+name)
	})
	if err != nil {
		return nil, translateAuthErr(err)
	}
	defer zero.Bytes(master)

	store, err := e.store()
	if err != nil {
		return nil, err
	}
	if !store.Has(name) {
		return nil, ErrKeyNotExists
	}
	file, err := store.Load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	plaintext, err := Run(ctx, e.pool, func() ([]byte, error) {
		return keystore.Decrypt(file, master)
	})
	if err != nil {
		return nil, translateCryptoErr(err)
	}
	return plaintext, nil
}

// Read discloses the raw plaintext key bytes for name. Caller must
// zeroize the returned slice once it has been wrapped for disclosure.
func (e *Engine) Read(ctx context.Context, name string) ([]byte, error) {
	return e.read(ctx, name)
}

// AddressEVM decrypts name and derives its EVM address. This is EVM-only;
// there is no ambiguity about which curve the stored bytes use because
// the caller picked this route.
func (e *Engine) AddressEVM(ctx context.Context, name string) (string, error) {
	plaintext, err := e.read(ctx, name)
	if err != nil {
		return "", err
	}
	defer zero.Bytes(plaintext)
	addr, err := evmAddress(plaintext)
	if err != nil {
		return "", translateCryptoErr(err)
	}
	return addr, nil
}

// AddressSolana decrypts name and renders its Solana base58 address.
func (e *Engine) AddressSolana(ctx context.Context, name string) (string, error) {
	plaintext, err := e.read(ctx, name)
	if err != nil {
		return "", err
	}
	defer zero.Bytes(plaintext)
	addr, err := solanaAddress(plaintext)
	if err != nil {
		return "", translateCryptoErr(err)
	}
	return addr, nil
}

func translateAuthErr(err error) error {
	var notOwner *platform.ErrNotDeviceOwner
	if errors.As(err, &notOwner) {
		return ErrNotDeviceOwner
	}
	if errors.Is(err, platform.ErrFailedToGetEncryptionKey) {
		return ErrFailedToGetEncryptionKey
	}
	return err
}

func translateCryptoErr(err error) error {
	switch {
	case errors.Is(err, keystore.ErrMacMismatch):
		return ErrMacMismatch
	case errors.Is(err, keystore.ErrInvalidParams):
		return ErrScryptInvalidParams
	case errors.Is(err, keystore.ErrBadKeyLen):
		return ErrAesInvalidKeyNonceLen
	case errors.Is(err, keystore.ErrUnsupportedCipher),
		errors.Is(err, keystore.ErrUnsupportedKDF),
		errors.Is(err, keystore.ErrUnsupportedVersion):
		return ErrScryptInvalidParams
	case errors.Is(err, ErrEcdsaError):
		return ErrEcdsaError
	}
	return err
}
