package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	cfg "github.com/monmlabs/monm-server/internal/config"
)

// Storage defines the interface for media blob operations
type Storage interface {
	// Save stores a blob at the given path
	Save(path string, r io.Reader) error

	// Open returns the blob content for reading
	Open(path string) (io.ReadCloser, error)

	// Delete removes the blob at the given path
	Delete(path string) error
}

// New creates the storage backend selected by config: local disk by
// default, S3-compatible when STORAGE_DRIVER=s3.
func New(c *cfg.Config) (Storage, error) {
	if c.StorageDriver == "s3" {
		return NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
		})
	}
	return NewLocalStorage(c.UploadPath)
}

// LocalStorage stores blobs under a root directory on disk.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Save(path string, r io.Reader) error {
	full := filepath.Join(s.root, filepath.Clean("/"+path))

	err := os.MkdirAll(filepath.Dir(full), 0o755)
	if err != nil {
		return err
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return f.Close()
}

func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.Clean("/"+path)))
}

func (s *LocalStorage) Delete(path string) error {
	return os.Remove(filepath.Join(s.root, filepath.Clean("/"+path)))
}
