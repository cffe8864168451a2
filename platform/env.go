package platform

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvBackend is a development stand-in for the real platform backend: it
// asks for interactive confirmation on a TTY instead of a biometric
// prompt, and reads the master secret from a single file path rather than
// an OS-managed vault. It exists so this service is runnable end to end on
// any machine; a real macOS Touch ID / Keychain backend is out of scope
// for this repository.
type EnvBackend struct {
	MasterFile  string
	StoreDir    string
	Log         func(msg string)
	AutoApprove bool
}

func NewEnvBackend(masterFile, storeDir string, autoApprove bool, log func(string)) *EnvBackend {
	if log == nil {
		log = func(string) {}
	}
	return &EnvBackend{MasterFile: masterFile, StoreDir: storeDir, Log: log, AutoApprove: autoApprove}
}

func (e *EnvBackend) IsDeviceOwner(reason string) bool {
	if e.AutoApprove {
		return true
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(os.Stderr, "approve %q? [y/N] ", reason)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func (e *EnvBackend) GetEncryptionKey() ([]byte, bool) {
	b, err := os.ReadFile(e.MasterFile)
	if err != nil {
		return nil, false
	}
	return []byte(strings.TrimRight(string(b), "\r\n")), true
}

func (e *EnvBackend) Store() string {
	return e.StoreDir
}

func (e *EnvBackend) CommunicateErr(msg string) {
	e.Log(msg)
}
