package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned by CreateFile when a keystore already sits at path.
// It is the direct OS-level signal the custody engine turns into its
// KeyExists condition, closing the generate/generate race without a
// separate lock file.
var ErrExists = errors.New("keystore: file already exists")

// Store is a directory of one keystore file per key name.
type Store struct {
	dir string
}

// NewStore ensures dir exists (mode 0700) and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("keystore: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Has reports whether a keystore file already exists for name.
func (s *Store) Has(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Create writes f for name, failing with ErrExists if the file is already
// present. The create is exclusive at the OS level (O_CREATE|O_EXCL) so
// two concurrent generate calls for the same name cannot both succeed.
func (s *Store) Create(name string, f *File) error {
	b, err := Marshal(f)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return ErrExists
		}
		return fmt.Errorf("keystore: create: %w", err)
	}
	defer fh.Close()
	if _, err := fh.Write(b); err != nil {
		return fmt.Errorf("keystore: write: %w", err)
	}
	return nil
}

// Load reads and parses the keystore file for name.
func (s *Store) Load(name string) (*File, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("keystore: read: %w", err)
	}
	return Unmarshal(b)
}

// WriteAtomic overwrites path with b via write-to-temp-then-rename. Used
// by hotvaultctl's add-master command so a crash mid-write can never
// leave a half-written master secret on disk.
func WriteAtomic(path string, b []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := fh.Write(b); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
