package platform

import (
	"errors"
	"testing"
)

func TestAssertOwnerGetEncryptionKeySuccess(t *testing.T) {
	f := NewFake(true, []byte("master"), "/tmp/x")
	key, err := AssertOwnerGetEncryptionKey(f, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(key) != "master" {
		t.Fatalf("key: got %q", key)
	}
}

func TestAssertOwnerGetEncryptionKeyDenied(t *testing.T) {
	f := NewFake(false, []byte("master"), "/tmp/x")
	_, err := AssertOwnerGetEncryptionKey(f, "test")
	var notOwner *ErrNotDeviceOwner
	if !errors.As(err, &notOwner) {
		t.Fatalf("expected ErrNotDeviceOwner, got %v", err)
	}
	if len(f.Errs) != 1 {
		t.Fatalf("expected communicated error, got %d", len(f.Errs))
	}
}

func TestAssertOwnerGetEncryptionKeyVaultFailure(t *testing.T) {
	f := NewFake(true, nil, "/tmp/x")
	_, err := AssertOwnerGetEncryptionKey(f, "test")
	if !errors.Is(err, ErrFailedToGetEncryptionKey) {
		t.Fatalf("expected ErrFailedToGetEncryptionKey, got %v", err)
	}
}
