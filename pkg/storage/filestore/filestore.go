// Package filestore implements storage.Backend as one file per key inside a
// directory. Writes go through a temp file and rename, so readers never see
// a partial value. Watch reports changes made by other processes.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/vango-dev/vstore/pkg/storage"
)

const itemExt = ".val"

// Store is a directory-backed storage.Backend.
type Store struct {
	dir    string
	perm   fs.FileMode
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Option configures a Store.
type Option func(*config)

type config struct {
	perm   fs.FileMode
	logger *slog.Logger
}

// WithFileMode sets the permission bits for item files. Default: 0o600.
func WithFileMode(perm fs.FileMode) Option {
	return func(c *config) {
		c.perm = perm
	}
}

// WithLogger sets the logger used by Watch.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := &config{
		perm:   0o600,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", abs, err)
	}
	return &Store{
		dir:    abs,
		perm:   cfg.perm,
		logger: cfg.logger.With("component", "filestore", "dir", abs),
	}, nil
}

// Dir returns the absolute directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+itemExt)
}

// keyFromName reverses path for a base file name.
func keyFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, itemExt) || strings.HasPrefix(name, ".tmp-") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, itemExt))
	if err != nil {
		return "", false
	}
	return key, true
}

// GetItem implements storage.Backend.
func (s *Store) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, storage.ErrClosed
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// SetItem implements storage.Backend.
func (s *Store) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// RemoveItem implements storage.Backend.
func (s *Store) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Keys implements storage.Lister.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyFromName(e.Name()); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed. Files are left in place.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Change describes a key modified on disk.
type Change struct {
	Key     string
	Removed bool
}

// Watch calls fn for every item file created, written, renamed or removed in
// the store directory until ctx is cancelled. It blocks; run it in its own
// goroutine. Changes made through this Store are reported too.
func (s *Store) Watch(ctx context.Context, fn func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filestore: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("filestore: watch %s: %w", s.dir, err)
	}
	s.logger.Debug("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			key, ok := keyFromName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove):
				fn(Change{Key: key, Removed: true})
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				fn(Change{Key: key})
			case event.Has(fsnotify.Rename):
				// renamed away from this name
				fn(Change{Key: key, Removed: true})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}
