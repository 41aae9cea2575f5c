// Package blobstore stores article file bytes on the local filesystem under
// uuid filenames, the same layout the publishing platform uses for uploads.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Store resolves and writes article files under a base directory. Files live
// at <base>/articles/<articleID>/<uuidFilename>.
type Store struct {
	base string
}

// New creates a Store rooted at base.
func New(base string) *Store {
	return &Store{base: base}
}

// Path returns the absolute location of an article file.
func (s *Store) Path(articleID int64, uuidFilename string) string {
	return filepath.Join(s.base, "articles", strconv.FormatInt(articleID, 10), uuidFilename)
}

// Open opens an article file for reading.
func (s *Store) Open(articleID int64, uuidFilename string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(articleID, uuidFilename))
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", uuidFilename, err)
	}
	return f, nil
}

// Write stores content under the article's directory, creating it as needed.
// Returns the number of bytes written.
func (s *Store) Write(articleID int64, uuidFilename string, content io.Reader) (int64, error) {
	path := s.Path(articleID, uuidFilename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("blobstore: mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("blobstore: create %s: %w", uuidFilename, err)
	}
	defer f.Close()

	n, err := io.Copy(f, content)
	if err != nil {
		return n, fmt.Errorf("blobstore: write %s: %w", uuidFilename, err)
	}
	return n, nil
}

// Remove deletes an article file. Missing files are not an error.
func (s *Store) Remove(articleID int64, uuidFilename string) error {
	err := os.Remove(s.Path(articleID, uuidFilename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore: remove %s: %w", uuidFilename, err)
	}
	return nil
}
