package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalService stores blobs as plain files under a single base directory.
type LocalService struct {
	baseDir string
}

func NewLocalService(baseDir string) (*LocalService, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalService{baseDir: filepath.Clean(baseDir)}, nil
}

// resolve maps a key to a path inside baseDir, rejecting traversal.
func (s *LocalService) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key is required")
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.baseDir, path); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path, nil
}

func (s *LocalService) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp := path + ".part"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create object %s: %w", key, err)
	}

	written, err := io.Copy(f, body)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close object %s: %w", key, closeErr)
	}
	if size >= 0 && written != size {
		_ = os.Remove(tmp)
		return fmt.Errorf("write object %s: short write (%d of %d bytes)", key, written, size)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

func (s *LocalService) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
		}
		return nil, 0, fmt.Errorf("open object %s: %w", key, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat object %s: %w", key, err)
	}
	return f, fi.Size(), nil
}

func (s *LocalService) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *LocalService) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if info.IsDir() || strings.HasSuffix(path, ".part") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		mod := info.ModTime()
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: &mod,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return objects, nil
}

var _ Service = (*LocalService)(nil)
