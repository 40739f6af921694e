package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("storage: file exceeds size limit")

// LocalStorage keeps submission files on disk under a base directory.
type LocalStorage struct {
	baseDir string
	maxSize int64
}

// NewLocalStorage ensures the base directory exists. maxSize <= 0 disables
// the limit.
func NewLocalStorage(baseDir string, maxSize int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./submissions"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create submissions directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxSize: maxSize}, nil
}

// SaveStream copies r into relPath. A partially written file is removed when
// the limit is exceeded or the copy fails.
func (s *LocalStorage) SaveStream(relPath string, r io.Reader) (int64, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare submission directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create submission file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(file, src)
	closeErr := file.Close()
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return 0, err
		}
		return 0, fmt.Errorf("write submission file: %w", err)
	}
	return n, nil
}

// Open returns a read-only handle for a stored file.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open submission file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(relPath string) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete submission file: %w", err)
	}
	return nil
}

// resolve keeps every path inside baseDir.
func (s *LocalStorage) resolve(relPath string) (string, error) {
	clean := filepath.Clean("/" + relPath)
	if clean == "/" {
		return "", fmt.Errorf("storage: empty path")
	}
	path := filepath.Join(s.baseDir, strings.TrimPrefix(clean, "/"))
	return path, nil
}
