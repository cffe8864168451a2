package custody

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/hotvault/hotvault/platform"
)

func testEngine(t *testing.T) (*Engine, *platform.Fake) {
	t.Helper()
	dir := t.TempDir()
	backend := platform.NewFake(true, []byte("I_am_a_secret_that_should_not_be_In_memory"), dir)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := NewPool(2)
	t.Cleanup(pool.Close)
	return NewEngine(backend, log, pool), backend
}

// Generate then generate again yields KeyExists; address matches the
// EVM address format.
func TestGenerateThenAddress(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	if err := e.GenerateEVM(ctx, "T1"); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if err := e.GenerateEVM(ctx, "T1"); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("second generate: expected ErrKeyExists, got %v", err)
	}

	addr, err := e.AddressEVM(ctx, "T1")
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if !regexp.MustCompile(`^0x[0-9a-f]{40}$`).MatchString(addr) {
		t.Fatalf("address %q does not match expected format", addr)
	}
}

// Exclusivity: concurrent generate calls with the same name result in
// exactly one success, the rest KeyExists.
func TestGenerateExclusivity(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = e.GenerateEVM(ctx, "Racer")
		}(i)
	}
	wg.Wait()

	successes, exists := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrKeyExists):
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if exists != n-1 {
		t.Fatalf("expected %d ErrKeyExists, got %d", n-1, exists)
	}
}

// Name validation rejects any name outside [A-Za-z0-9_].
func TestNameValidationRejectsBadNames(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	bad := []string{"has space", "slash/es", "semi;colon", "", "emoji🙂"}
	for _, name := range bad {
		if err := e.GenerateEVM(ctx, name); !errors.Is(err, ErrBadName) {
			t.Fatalf("name %q: expected ErrBadName, got %v", name, err)
		}
	}
}

func TestNotDeviceOwnerBlocksGenerate(t *testing.T) {
	dir := t.TempDir()
	backend := platform.NewFake(false, []byte("master"), dir)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := NewPool(1)
	defer pool.Close()
	e := NewEngine(backend, log, pool)

	if err := e.GenerateEVM(context.Background(), "T2"); !errors.Is(err, ErrNotDeviceOwner) {
		t.Fatalf("expected ErrNotDeviceOwner, got %v", err)
	}
	if len(backend.Errs) != 1 {
		t.Fatalf("expected 1 communicated error, got %d", len(backend.Errs))
	}
}

func TestSolanaGenerateAndAddress(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	if err := e.GenerateSolana(ctx, "Sol1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr, err := e.AddressSolana(ctx, "Sol1")
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if len(addr) == 0 {
		t.Fatalf("expected a non-empty base58 address")
	}
}

func TestReadNonexistentKey(t *testing.T) {
	e, _ := testEngine(t)
	if _, err := e.Read(context.Background(), "Ghost"); !errors.Is(err, ErrKeyNotExists) {
		t.Fatalf("expected ErrKeyNotExists, got %v", err)
	}
}
