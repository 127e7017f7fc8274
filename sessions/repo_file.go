package sessions

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileFormatVersion = 1
	saltSize          = 16
	nonceSize         = 24
	keySize           = 32

	defaultScryptN = 1 << 15
)

// envelope is the on-disk form of a sealed session.
type envelope struct {
	Version int    `json:"v"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Box     []byte `json:"box"`
}

// FileStore persists the session in a single file sealed with NaCl secretbox.
// The key is derived from a passphrase with scrypt; the salt is kept in the file.
type FileStore struct {
	path       string
	passphrase []byte
	scryptN    int

	mu   sync.Mutex
	salt []byte
	key  *[keySize]byte
}

var _ Store = (*FileStore)(nil)

type FileStoreOption func(*FileStore)

// WithScryptCost overrides the scrypt CPU/memory cost (a power of two).
func WithScryptCost(n int) FileStoreOption {
	return func(fs *FileStore) {
		fs.scryptN = n
	}
}

func NewFileStore(path, passphrase string, options ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if passphrase == "" {
		return nil, errors.New("[NewFileStore] passphrase is required")
	}

	fs := &FileStore{
		path:       path,
		passphrase: []byte(passphrase),
		scryptN:    defaultScryptN,
	}
	for _, opt := range options {
		opt(fs)
	}
	return fs, nil
}

func (fs *FileStore) Load() (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore.Load] read: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("[FileStore.Load] decode envelope: %w", err)
	}
	if env.Version != fileFormatVersion || len(env.Nonce) != nonceSize || len(env.Salt) != saltSize {
		return nil, fmt.Errorf("[FileStore.Load] unsupported session file format")
	}

	key, err := fs.keyFor(env.Salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], env.Nonce)
	plain, ok := secretbox.Open(nil, env.Box, &nonce, key)
	if !ok {
		return nil, fmt.Errorf("[FileStore.Load] cannot open session file, wrong passphrase?")
	}

	var session Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, fmt.Errorf("[FileStore.Load] decode session: %w", err)
	}
	return &session, nil
}

func (fs *FileStore) Save(session *Session) error {
	if session == nil {
		return errors.New("[FileStore.Save] session is nil")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[FileStore.Save] encode session: %w", err)
	}

	if fs.salt == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("[FileStore.Save] rand.Read: %w", err)
		}
		fs.salt = salt
		fs.key = nil
	}
	key, err := fs.keyFor(fs.salt)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("[FileStore.Save] rand.Read: %w", err)
	}

	data, err := json.Marshal(envelope{
		Version: fileFormatVersion,
		Salt:    fs.salt,
		Nonce:   nonce[:],
		Box:     secretbox.Seal(nil, plain, &nonce, key),
	})
	if err != nil {
		return fmt.Errorf("[FileStore.Save] encode envelope: %w", err)
	}
	return writeFileAtomic(fs.path, data)
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.salt = nil
	fs.key = nil
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("[FileStore.Clear] %w", err)
	}
	return nil
}

// keyFor derives (and caches) the key for salt. Callers hold fs.mu.
func (fs *FileStore) keyFor(salt []byte) (*[keySize]byte, error) {
	if fs.key != nil && bytes.Equal(fs.salt, salt) {
		return fs.key, nil
	}
	derived, err := scrypt.Key(fs.passphrase, salt, fs.scryptN, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("[FileStore] derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	fs.salt = append([]byte(nil), salt...)
	fs.key = &key
	return fs.key, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[writeFileAtomic] mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[writeFileAtomic] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[writeFileAtomic] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[writeFileAtomic] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[writeFileAtomic] close: %w", err)
	}
	return os.Rename(tmpName, path)
}
