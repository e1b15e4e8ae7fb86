package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// document is the on-disk layout of the token file.
type document struct {
	Salt   string            `json:"salt,omitempty"` // scrypt salt, set once encryption is used
	Tokens map[string]string `json:"tokens"`
}

// FileStore keeps tokens in a JSON file, optionally encrypted at rest.
type FileStore struct {
	path   string
	sealer *sealer
	logger zerolog.Logger
	lock   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// FileStoreOption defines a function type to modify the FileStore instance.
type FileStoreOption func(*FileStore)

// WithPassphrase encrypts stored values with a key derived from passphrase.
func WithPassphrase(passphrase string) FileStoreOption {
	return func(fs *FileStore) {
		if passphrase != "" {
			fs.sealer = newSealer(passphrase)
		}
	}
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(logger zerolog.Logger) FileStoreOption {
	return func(fs *FileStore) {
		fs.logger = logger
	}
}

// NewFileStore returns a store backed by the file at path. An empty path
// yields a store with no durable medium: every read is absent.
func NewFileStore(path string, options ...FileStoreOption) *FileStore {
	fs := &FileStore{
		path:   path,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(fs)
	}
	return fs
}

func (fs *FileStore) Get(name string) (string, bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	doc, err := fs.load()
	if err != nil {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to read token")
		return "", false
	}

	value, ok := doc.Tokens[name]
	if !ok || value == "" {
		return "", false
	}

	if fs.sealer == nil {
		return value, true
	}
	plain, err := fs.sealer.open(doc, value)
	if err != nil {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to decrypt token")
		return "", false
	}
	return plain, true
}

func (fs *FileStore) Set(name, value string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	doc, err := fs.load()
	if apperrors.Is(err, apperrors.ErrStorageUnavailable) {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to store token")
		return
	}
	if err != nil {
		// A corrupt file is replaced rather than blocking sign-in forever.
		fs.logger.Warn().Err(err).Str("path", fs.path).Msg("Discarding unreadable token file")
		doc = &document{Tokens: map[string]string{}}
	}

	if fs.sealer != nil {
		if value, err = fs.sealer.seal(doc, value); err != nil {
			fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to encrypt token")
			return
		}
	}
	doc.Tokens[name] = value

	if err := fs.save(doc); err != nil {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to store token")
	}
}

func (fs *FileStore) Clear(name string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	doc, err := fs.load()
	if err != nil {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to clear token")
		return
	}
	if _, ok := doc.Tokens[name]; !ok {
		return
	}
	delete(doc.Tokens, name)

	if err := fs.save(doc); err != nil {
		fs.logger.Warn().Err(err).Str("key", name).Msg("Failed to clear token")
	}
}

func (fs *FileStore) load() (*document, error) {
	if fs.path == "" {
		return nil, apperrors.ErrStorageUnavailable
	}

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return &document{Tokens: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenCorrupt, err)
	}
	if doc.Tokens == nil {
		doc.Tokens = map[string]string{}
	}
	return doc, nil
}

// save writes doc next to the target and renames it into place so a crash
// never leaves a half-written token file.
func (fs *FileStore) save(doc *document) error {
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), fs.path)
}
