// Package platform defines the capability boundary the custody engine
// depends on for device-owner presence checks and master-secret retrieval.
// The production biometric/Keychain implementation is an external
// collaborator outside this repository's scope; this package defines the
// contract plus the two implementations needed to develop and test
// against it.
package platform

import "fmt"

// Backend is the capability surface the custody engine authorizes every
// sensitive operation through. Implementations must treat reason as
// user-facing text shown in whatever presence-confirmation UI they use.
type Backend interface {
	// IsDeviceOwner performs a presence check (biometric prompt, device
	// password, or equivalent) and reports whether it succeeded.
	IsDeviceOwner(reason string) bool

	// GetEncryptionKey fetches the long-term master secret from the OS
	// vault. The bool reports whether the fetch succeeded; callers must
	// not inspect the returned bytes when it is false.
	GetEncryptionKey() ([]byte, bool)

	// Store returns the filesystem directory keystores are read from and
	// written to. Implementations should expand a leading "~/" against
	// the current user's home directory.
	Store() string

	// CommunicateErr notifies the operator (OS notification, log line,
	// whatever the platform offers) that an operation failed. This is a
	// side channel, not the request's HTTP response.
	CommunicateErr(msg string)
}

// ErrNotDeviceOwner is returned by AssertOwnerGetEncryptionKey when the
// presence check fails.
type ErrNotDeviceOwner struct{ Reason string }

func (e *ErrNotDeviceOwner) Error() string {
	return fmt.Sprintf("platform: device owner check failed: %s", e.Reason)
}

// ErrFailedToGetEncryptionKey is returned by AssertOwnerGetEncryptionKey
// when the vault fetch fails after a successful presence check.
var ErrFailedToGetEncryptionKey = fmt.Errorf("platform: failed to get encryption key")

// AssertOwnerGetEncryptionKey is the combined gate every sensitive custody
// operation runs through: prove presence, then fetch the master secret.
// On any failure it also calls b.CommunicateErr so the operator learns
// about it outside the HTTP response.
func AssertOwnerGetEncryptionKey(b Backend, reason string) ([]byte, error) {
	if !b.IsDeviceOwner(reason) {
		err := &ErrNotDeviceOwner{Reason: reason}
		b.CommunicateErr(err.Error())
		return nil, err
	}
	key, ok := b.GetEncryptionKey()
	if !ok {
		b.CommunicateErr(ErrFailedToGetEncryptionKey.Error())
		return nil, ErrFailedToGetEncryptionKey
	}
	return key, nil
}
