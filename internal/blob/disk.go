package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskStore keeps attachments as flat files in one directory. Keys are
// generated server-side, so a stored filename never comes from the client.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the directory if needed and returns a store serving
// objects under baseURL + "/files/".
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *DiskStore) Put(ctx context.Context, r io.Reader, filename, contentType string) (*Object, error) {
	ext := filepath.Ext(filename)
	key := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return nil, fmt.Errorf("create blob file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, key))
		return nil, fmt.Errorf("write blob: %w", err)
	}

	return &Object{
		Key:         key,
		URL:         s.baseURL + "/files/" + key,
		Size:        size,
		ContentType: contentType,
	}, nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	clean, err := s.safeKey(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		return nil, "", fmt.Errorf("open blob %s: %w", clean, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(clean))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	clean, err := s.safeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", clean, err)
	}
	return nil
}

// safeKey rejects keys that could escape the storage directory.
func (s *DiskStore) safeKey(key string) (string, error) {
	clean := filepath.Base(filepath.Clean(key))
	if clean == "" || clean == "." || clean == ".." || clean != key {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}
