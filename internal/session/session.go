// Package session persists the record snapshot in an encrypted store that
// lives only as long as the login session.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
)

// PersonKey is the slot holding the person collection.
const PersonKey = "person-storage"

const collectionName = "session"

// ErrClosed is returned by slots of a closed vault.
var ErrClosed = errors.New("session closed")

// entry is the stored form of one slot. Key is repeated inside the value
// so an absent slot can be told apart from an unreadable one.
type entry struct {
	Key  string `json:"key"`
	Data []byte `json:"data"`
}

// Dir returns the session directory. It prefers XDG_RUNTIME_DIR, which the
// OS clears at logout, and falls back to a per-user temp directory.
func Dir() string {
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return filepath.Join(d, "zpeople")
	}
	return filepath.Join(os.TempDir(), "zpeople-"+strconv.Itoa(os.Getuid()))
}

// IsNew reports whether no session has been started in dir.
func IsNew(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "salt"))
	return err != nil
}

// End removes the session directory and everything persisted in it.
func End(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Vault is an encrypted session store holding named slots.
type Vault struct {
	mu      sync.Mutex
	store   *zstore.Store
	entries *zstore.Collection[entry]
}

// Open unlocks the session store on fsys. The first open with a given
// filesystem sets the password.
func Open(fsys zfilesystem.ReadWriteFileFS, password []byte) (*Vault, error) {
	s, err := zstore.Open(fsys, password)
	if err != nil {
		return nil, err
	}

	col, err := zstore.NewCollection[entry](s, collectionName)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open session collection: %w", err)
	}

	return &Vault{store: s, entries: col}, nil
}

// OpenDir creates dir if needed and opens the session store inside it.
func OpenDir(dir string, password []byte) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return Open(zfilesystem.NewOSFileSystem(dir), password)
}

// Slot returns the slot stored under key.
func (v *Vault) Slot(key string) *Slot {
	return &Slot{vault: v, key: key}
}

// Close locks the vault. Slots obtained from it stop working.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.store == nil {
		return nil
	}
	v.store.Close()
	v.store = nil
	v.entries = nil
	return nil
}

func (v *Vault) load(key string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.entries == nil {
		return nil, ErrClosed
	}

	e, err := v.entries.Get(key)
	if err == nil {
		return e.Data, nil
	}

	present, lerr := v.hasLocked(key)
	if lerr != nil {
		return nil, fmt.Errorf("load %s: %w", key, lerr)
	}
	if !present {
		return nil, nil
	}
	return nil, fmt.Errorf("load %s: %w", key, err)
}

func (v *Vault) hasLocked(key string) (bool, error) {
	all, err := v.entries.List()
	if err != nil {
		return false, err
	}
	for _, e := range all {
		if e.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (v *Vault) save(key string, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.entries == nil {
		return ErrClosed
	}
	if err := v.entries.Put(key, entry{Key: key, Data: data}); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (v *Vault) remove(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.entries == nil {
		return ErrClosed
	}
	present, err := v.hasLocked(key)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	if !present {
		return nil
	}
	if err := v.entries.Delete(key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Slot is one named value inside a vault. It satisfies store.Slot.
type Slot struct {
	vault *Vault
	key   string
}

// Key returns the slot name.
func (s *Slot) Key() string { return s.key }

// Load returns the stored bytes, or nil when the slot was never written.
func (s *Slot) Load() ([]byte, error) { return s.vault.load(s.key) }

// Save replaces the stored bytes.
func (s *Slot) Save(data []byte) error { return s.vault.save(s.key, data) }

// Clear removes the stored value.
func (s *Slot) Clear() error { return s.vault.remove(s.key) }
