// Package store persists INI files for the ini_* functions. Games address a
// store by file name, section and key; the backend decides where the values
// actually live.
package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gml-vm/internal/config"

	"github.com/go-errors/errors"
)

type Store interface {
	// Read reports the value of key, or false when the file, section or key
	// does not exist.
	Read(ctx context.Context, file, section, key string) (string, bool, error)
	Write(ctx context.Context, file, section, key, value string) error
	DeleteKey(ctx context.Context, file, section, key string) error
	DeleteSection(ctx context.Context, file, section string) error
	SectionExists(ctx context.Context, file, section string) (bool, error)
	Close() error
}

// Open builds the backend named by cfg.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.Dir, "gmlvm.db")
		}
		return OpenSQLite(ctx, dsn, cfg.Table)
	case "dynamodb":
		return OpenDynamo(ctx, cfg.Region, cfg.Table)
	}
	return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
}

// FileStore keeps real INI files under a directory. Files are opened only
// for the duration of one operation.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

// path resolves file inside the store directory.
func (s *FileStore) path(file string) (string, error) {
	if file == "" || filepath.IsAbs(file) {
		return "", errors.Errorf("invalid ini file name %q", file)
	}
	clean := filepath.Clean(file)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("ini file %q is outside the game directory", file)
	}
	return filepath.Join(s.dir, clean), nil
}

// load reads file; a missing file is an empty document.
func (s *FileStore) load(file string) (*iniDoc, string, error) {
	path, err := s.path(file)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, "", errors.Wrap(err, 0)
	}
	return parseINI(data), path, nil
}

func (s *FileStore) save(path string, doc *iniDoc) error {
	if err := os.WriteFile(path, doc.bytes(), 0o644); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (s *FileStore) Read(_ context.Context, file, section, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load(file)
	if err != nil {
		return "", false, err
	}
	v, ok := doc.get(section, key)
	return v, ok, nil
}

func (s *FileStore) Write(_ context.Context, file, section, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, path, err := s.load(file)
	if err != nil {
		return err
	}
	doc.set(section, key, value)
	return s.save(path, doc)
}

func (s *FileStore) DeleteKey(_ context.Context, file, section, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, path, err := s.load(file)
	if err != nil {
		return err
	}
	if !doc.deleteKey(section, key) {
		return nil
	}
	return s.save(path, doc)
}

func (s *FileStore) DeleteSection(_ context.Context, file, section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, path, err := s.load(file)
	if err != nil {
		return err
	}
	if !doc.deleteSection(section) {
		return nil
	}
	return s.save(path, doc)
}

func (s *FileStore) SectionExists(_ context.Context, file, section string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load(file)
	if err != nil {
		return false, err
	}
	return doc.hasSection(section), nil
}

func (s *FileStore) Close() error { return nil }
