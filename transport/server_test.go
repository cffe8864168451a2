package transport

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/hotvault/hotvault/custody"
	"github.com/hotvault/hotvault/handshake"
	"github.com/hotvault/hotvault/platform"
)

func testServer(t *testing.T) (*Server, *platform.Fake) {
	t.Helper()
	dir := t.TempDir()
	backend := platform.NewFake(true, []byte("I_am_a_secret_that_should_not_be_In_memory"), dir)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := custody.NewPool(2)
	t.Cleanup(pool.Close)
	engine := custody.NewEngine(backend, log, pool)
	return &Server{Engine: engine, Log: log, Backend: backend}, backend
}

// /health responds with a bare 200 "ok".
func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	app := BuildApp(srv)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body: got %q", body)
	}
}

// Generate, generate again (KeyExists -> 500), address matches format.
func TestEVMGenerateAndAddress(t *testing.T) {
	srv, backend := testServer(t)
	app := BuildApp(srv)

	resp1, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_generate/T1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("first generate status: got %d", resp1.StatusCode)
	}

	resp2, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_generate/T1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp2.StatusCode != http.StatusInternalServerError {
		t.Fatalf("second generate status: got %d, want 500 (KeyExists)", resp2.StatusCode)
	}
	if len(backend.Errs) != 1 {
		t.Fatalf("expected KeyExists to reach CommunicateErr once, got %d: %v", len(backend.Errs), backend.Errs)
	}

	resp3, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_address/T1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("address status: got %d", resp3.StatusCode)
	}
	body, _ := io.ReadAll(resp3.Body)
	if !regexp.MustCompile(`^0x[0-9a-f]{40}$`).Match(body) {
		t.Fatalf("address %q does not match expected format", body)
	}
}

func TestBadNameYields400(t *testing.T) {
	srv, backend := testServer(t)
	app := BuildApp(srv)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_generate/bad%20name", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
	if len(backend.Errs) != 0 {
		t.Fatalf("ErrBadName should not reach CommunicateErr, got %v", backend.Errs)
	}
}

// /read/T1 returns a sealed response that decrypts client-side to the
// same bytes that produced its EVM address.
// A presence-check denial is communicated exactly once: inside
// AssertOwnerGetEncryptionKey, not a second time at the transport layer.
func TestAuthDenialNotifiesOnce(t *testing.T) {
	srv, backend := testServer(t)
	backend.Approve = false
	app := BuildApp(srv)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_generate/T1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", resp.StatusCode)
	}
	if len(backend.Errs) != 1 {
		t.Fatalf("expected exactly one communicated error, got %d: %v", len(backend.Errs), backend.Errs)
	}
}

func TestReadHandshakeRoundTrip(t *testing.T) {
	srv, _ := testServer(t)
	app := BuildApp(srv)

	if resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/evm_generate/T1", nil)); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: err=%v status=%v", err, resp)
	}

	curve := ecdh.X25519()
	clientPriv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	reqBody, _ := json.Marshal(handshake.ClientReq{Pubk: clientPriv.PublicKey().Bytes()})

	httpReq := httptest.NewRequest(http.MethodGet, "/read/T1", bytes.NewReader(reqBody))
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(httpReq)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var res handshake.ServerEncryptedRes
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	serverPub, err := curve.NewPublicKey(res.Pubk)
	if err != nil {
		t.Fatalf("bad server pubkey: %v", err)
	}
	shared, err := clientPriv.ECDH(serverPub)
	if err != nil {
		t.Fatalf("ecdh: %v", err)
	}
	r := hkdf.New(sha256.New, shared, nil, []byte("hotvault-read-v1"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := r.Read(key); err != nil {
		t.Fatalf("hkdf: %v", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		t.Fatalf("aead: %v", err)
	}
	plaintext, err := aead.Open(nil, res.Nonce, res.Ciphertext, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(plaintext) != 32 {
		t.Fatalf("expected a 32-byte secp256k1 scalar, got %d bytes", len(plaintext))
	}

	// A second read of the same key must disclose the identical bytes —
	// the ephemeral handshake changes every call, the underlying key does not.
	reqBody2, _ := json.Marshal(handshake.ClientReq{Pubk: clientPriv.PublicKey().Bytes()})
	httpReq2 := httptest.NewRequest(http.MethodGet, "/read/T1", bytes.NewReader(reqBody2))
	httpReq2.Header.Set("Content-Type", "application/json")
	resp2, err := app.Test(httpReq2)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	var res2 handshake.ServerEncryptedRes
	if err := json.NewDecoder(resp2.Body).Decode(&res2); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	serverPub2, err := curve.NewPublicKey(res2.Pubk)
	if err != nil {
		t.Fatalf("bad second server pubkey: %v", err)
	}
	shared2, err := clientPriv.ECDH(serverPub2)
	if err != nil {
		t.Fatalf("ecdh 2: %v", err)
	}
	r2 := hkdf.New(sha256.New, shared2, nil, []byte("hotvault-read-v1"))
	key2 := make([]byte, chacha20poly1305.KeySize)
	if _, err := r2.Read(key2); err != nil {
		t.Fatalf("hkdf 2: %v", err)
	}
	aead2, err := chacha20poly1305.New(key2)
	if err != nil {
		t.Fatalf("aead 2: %v", err)
	}
	plaintext2, err := aead2.Open(nil, res2.Nonce, res2.Ciphertext, nil)
	if err != nil {
		t.Fatalf("open 2: %v", err)
	}
	if !bytes.Equal(plaintext, plaintext2) {
		t.Fatalf("two reads of the same key disclosed different bytes")
	}
}
