// Package diskv persists records as flat JSON files in a directory.
package diskv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/evanschultz/lapse/internal/app"
)

const fileSuffix = ".json"

// Store keeps one file per record key under a base directory.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

// Open prepares a store rooted at basePath. The directory is created on the
// first write.
func Open(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("diskv base path is required")
	}
	return &Store{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      1024 * 1024, // 1MB
	}), basePath: basePath}, nil
}

// ReadRecord returns the value stored under key, or app.ErrRecordNotFound.
func (s *Store) ReadRecord(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, app.ErrRecordNotFound
		}
		return nil, fmt.Errorf("read record %q: %w", key, err)
	}
	return val, nil
}

// WriteRecord replaces the file for key.
func (s *Store) WriteRecord(_ context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("write record %q: %w", key, err)
	}
	return nil
}

// UpdatedAt returns the modification time of the file behind key.
func (s *Store) UpdatedAt(_ context.Context, key string) (time.Time, error) {
	if err := validKey(key); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(filepath.Join(s.basePath, key+fileSuffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, app.ErrRecordNotFound
		}
		return time.Time{}, fmt.Errorf("stat record %q: %w", key, err)
	}
	return info.ModTime().UTC(), nil
}

// validKey rejects keys that would escape the base directory.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid record key %q", key)
	}
	return nil
}

func keyToPathTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{
		Path:     []string{},
		FileName: key + fileSuffix,
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.TrimSuffix(pathKey.FileName, fileSuffix)
}
