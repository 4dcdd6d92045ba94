// Package storage persists answer recordings on local disk and tracks staged
// uploads in Redis until they are promoted by a submission.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrArtifactNotFound is returned when an artifact ref does not resolve to a
// stored file.
var ErrArtifactNotFound = errors.New("artifact not found")

// DiskArtifactStore writes recordings under a single root directory. Refs are
// opaque UUID-based filenames, never caller-supplied paths.
type DiskArtifactStore struct {
	root string
}

// NewDiskArtifactStore creates the store and its root directory.
func NewDiskArtifactStore(root string) (*DiskArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	return &DiskArtifactStore{root: root}, nil
}

// Store writes the stream to a new file and returns its ref. The extension is
// kept so the transcoder and download handler know the container format.
func (s *DiskArtifactStore) Store(r io.Reader, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ref := uuid.New().String() + ext

	dst, err := os.Create(filepath.Join(s.root, ref))
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return ref, nil
}

// Open returns a reader for a stored artifact.
func (s *DiskArtifactStore) Open(ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Path returns the absolute filesystem path of a stored artifact. Used by the
// transcode worker, which shells out to ffmpeg.
func (s *DiskArtifactStore) Path(ref string) (string, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrArtifactNotFound
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	return path, nil
}

// Delete removes a stored artifact. Deleting a missing ref is not an error so
// reset stays idempotent.
func (s *DiskArtifactStore) Delete(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

func (s *DiskArtifactStore) resolve(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return "", ErrArtifactNotFound
	}
	return filepath.Join(s.root, ref), nil
}
