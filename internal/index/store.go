// Package index keeps a bbolt snapshot of the last built catalog together with
// the page fingerprints used for incremental builds.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	domainerr "cyberblog/internal/domain/errors"

	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = fmt.Errorf("index: %w", domainerr.ErrNotFound)

type Store struct {
	db *bolt.DB
}

type OpenOptions struct {
	Path     string // e.g. ".cyberblog/index.db"
	ReadOnly bool
}

func Open(opt OpenOptions) (*Store, error) {
	if opt.Path == "" {
		return nil, errors.New("index: missing path")
	}
	if !opt.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(opt.Path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(opt.Path, 0o600, &bolt.Options{
		Timeout:  1 * time.Second,
		ReadOnly: opt.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", opt.Path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
