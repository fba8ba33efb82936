// Package publish uploads rendered scripts to an artifact store so operators
// can fetch them from outside the host that rendered them.
//
// The storage layer is a pluggable Backend. LocalStorage keeps artifacts in a
// directory tree; S3Storage puts them in an S3 (or S3-compatible) bucket.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Backend.Read for a missing artifact.
var ErrNotFound = errors.New("publish: artifact not found")

// Backend defines the interface for artifact storage operations.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Write stores data at the given path, creating parent directories as needed.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error

	// List returns all paths under the given prefix, sorted alphabetically.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks whether data exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}

// LocalStorage implements Backend on the local filesystem.
// All paths are resolved relative to the configured root directory.
type LocalStorage struct {
	rootDir string
	mu      sync.RWMutex
}

// NewLocalStorage creates a LocalStorage rooted at rootDir, creating it if needed.
func NewLocalStorage(rootDir string) (*LocalStorage, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("publish: failed to resolve root directory %q: %w", rootDir, err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("publish: failed to create root directory %q: %w", absRoot, err)
	}
	return &LocalStorage{rootDir: absRoot}, nil
}

// resolvePath joins the root directory with path and rejects paths that
// would escape it.
func (s *LocalStorage) resolvePath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("publish: invalid path %q: must be relative and not escape root", path)
	}
	fullPath := filepath.Join(s.rootDir, cleaned)
	if fullPath != s.rootDir && !strings.HasPrefix(fullPath, s.rootDir+string(filepath.Separator)) {
		return "", fmt.Errorf("publish: path %q resolves outside root directory", path)
	}
	return fullPath, nil
}

// Write stores data atomically: it writes a temp file next to the target and
// renames it into place. Scripts keep their executable mode.
func (s *LocalStorage) Write(ctx context.Context, path string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("publish: failed to create directory %q: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".janus-tmp-*")
	if err != nil {
		return fmt.Errorf("publish: failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		return fmt.Errorf("publish: failed to write data: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("publish: failed to close temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0755); err != nil {
		return fmt.Errorf("publish: failed to chmod %q: %w", path, err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("publish: failed to rename temp file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("publish: failed to read %q: %w", path, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("publish: failed to delete %q: %w", path, err)
	}
	return nil
}

// List returns all file paths under prefix, relative to the root and using
// forward slashes.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPrefix, err := s.resolvePath(prefix)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	err = filepath.Walk(fullPrefix, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".janus-tmp-") {
			return nil
		}
		rel, relErr := filepath.Rel(s.rootDir, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("publish: failed to list prefix %q: %w", prefix, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("publish: failed to stat %q: %w", path, err)
	}
	return true, nil
}
