// Package blob stores uploaded image bytes and hands back the public path
// under which they are served.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned by Delete for paths this store never issued.
var ErrInvalidPath = errors.New("blob path outside store")

// Store persists blobs.
type Store interface {
	// Put writes r under a fresh unique name ending in ext and returns the
	// public path of the stored object.
	Put(ctx context.Context, r io.Reader, ext string) (string, error)
	// Delete removes an object previously returned by Put. Missing objects
	// are not an error.
	Delete(ctx context.Context, publicPath string) error
}

// LocalStore keeps blobs as flat files in one directory.
type LocalStore struct {
	dir    string
	prefix string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates dir if needed. Stored files are exposed as
// prefix + "/" + name.
func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	prefix = "/" + strings.Trim(prefix, "/")
	return &LocalStore{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Prefix returns the public URL prefix.
func (s *LocalStore) Prefix() string {
	return s.prefix
}

func (s *LocalStore) Put(ctx context.Context, r io.Reader, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = normalizeExt(ext)

	tempFile, err := os.CreateTemp(s.dir, ".incoming-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(tempFile, r); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("finalize blob: %w", err)
	}

	name := uuid.NewString() + ext
	finalPath := filepath.Join(s.dir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("move blob: %w", err)
	}
	tempPath = ""

	if err := os.Chmod(finalPath, 0o644); err != nil {
		_ = os.Remove(finalPath)
		return "", fmt.Errorf("chmod blob: %w", err)
	}

	return path.Join(s.prefix, name), nil
}

func (s *LocalStore) Delete(ctx context.Context, publicPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := strings.CutPrefix(publicPath, s.prefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidPath, publicPath)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext[1:], `./\`) {
		return ""
	}
	return ext
}
