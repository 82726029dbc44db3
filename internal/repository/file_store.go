package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// diskFileStore keeps uploaded files in a local directory. The returned
// reference is the stored file name, so references stay portable across
// directory moves.
type diskFileStore struct {
	dir string
}

// NewDiskFileStore creates a file store rooted at dir.
func NewDiskFileStore(dir string) FileStore {
	return &diskFileStore{dir: filepath.Clean(dir)}
}

// Save writes the upload under a unique name and returns its reference.
func (s *diskFileStore) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ref := fmt.Sprintf("%s%s", uuid.New(), strings.ToLower(filepath.Ext(name)))
	target, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer target.Close()

	if _, err := io.Copy(target, data); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return ref, nil
}

// Open resolves a reference back to a readable stream.
func (s *diskFileStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	// References are bare file names; reject anything trying to escape the
	// upload directory.
	if ref != filepath.Base(ref) {
		return nil, fmt.Errorf("invalid file reference %q", ref)
	}
	file, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return file, nil
}
