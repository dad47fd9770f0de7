package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileScope stores one scope as a JSON document on an afero filesystem.
// Mutations rewrite the whole document through a temp file and a rename, so a
// concurrent reader in another process sees either the old or the new file.
type FileScope struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

var _ Scope = (*FileScope)(nil)

func NewFileScope(fs afero.Fs, path string) *FileScope {
	return &FileScope{fs: fs, path: path}
}

// Path returns the location of the scope document.
func (s *FileScope) Path() string {
	return s.path
}

func (s *FileScope) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (s *FileScope) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		doc[k] = v
	}
	return s.store(doc)
}

func (s *FileScope) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(doc, k)
	}
	return s.store(doc)
}

// load reads the document. A missing or corrupt file reads as empty.
func (s *FileScope) load() (map[string]string, error) {
	doc := make(map[string]string)
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return make(map[string]string), nil
	}
	return doc, nil
}

func (s *FileScope) store(doc map[string]string) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	if current, err := afero.ReadFile(s.fs, s.path); err == nil && bytes.Equal(current, data) {
		return nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(s.path), err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// encodeDoc renders the document; map keys are sorted by encoding/json so
// identical content yields identical bytes.
func encodeDoc(doc map[string]string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode scope document: %w", err)
	}
	return append(data, '\n'), nil
}
