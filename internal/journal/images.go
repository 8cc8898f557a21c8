package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrImageNotFound = errors.New("image not found")

// ImageStore keeps PNGs content-addressed on disk: <dir>/<sha[:2]>/<sha>.png.
// Identical captures share one file.
type ImageStore struct {
	dir string
}

// NewImageStore creates dir if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Put stores data and returns its SHA-256 hex digest.
func (s *ImageStore) Put(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("put image: empty data")
	}
	sum := sha256.Sum256(data)
	sha := hex.EncodeToString(sum[:])

	if s.Exists(sha) {
		return sha, nil
	}
	if err := atomicWriteFile(s.path(sha), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return sha, nil
}

// Get reads the image named sha and verifies its digest.
func (s *ImageStore) Get(sha string) ([]byte, error) {
	if !validSHA(sha) {
		return nil, fmt.Errorf("%w: %q", ErrImageNotFound, sha)
	}
	data, err := os.ReadFile(s.path(sha))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, sha)
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != sha {
		return nil, fmt.Errorf("image integrity check failed: expected %s, got %s", sha, got)
	}
	return data, nil
}

// Exists reports whether the image named sha is stored.
func (s *ImageStore) Exists(sha string) bool {
	if !validSHA(sha) {
		return false
	}
	_, err := os.Stat(s.path(sha))
	return err == nil
}

// Delete removes the image named sha. Missing images are not an error.
func (s *ImageStore) Delete(sha string) error {
	if !validSHA(sha) {
		return nil
	}
	if err := os.Remove(s.path(sha)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (s *ImageStore) path(sha string) string {
	return filepath.Join(s.dir, sha[:2], sha+".png")
}

func validSHA(sha string) bool {
	if len(sha) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(sha)
	return err == nil
}

// atomicWriteFile writes data via a temp file in the same directory and a
// rename, so readers never see a partial image.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
