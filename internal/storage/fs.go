package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// FSStore keeps blobs as plain files under a base directory. Keys are
// slash-separated relative paths; anything trying to climb out of the
// base is rejected.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data/uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(dst)
}

func (s *FSStore) Delete(key string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FSStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	// rooted Clean squashes any ".." before the key is joined to base
	return filepath.Join(s.base, filepath.Clean("/"+key)), nil
}
