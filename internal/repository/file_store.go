package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileDocumentStore keeps each document in <dir>/<name>.json. Writes go through a
// temporary file and rename so readers never see a partial document.
type FileDocumentStore struct {
	dir string
}

// NewFileDocumentStore creates dir if needed and returns a store rooted there.
func NewFileDocumentStore(dir string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &FileDocumentStore{dir: dir}, nil
}

func (s *FileDocumentStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load decodes the named file into v.
func (s *FileDocumentStore) Load(ctx context.Context, name string, v any) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, err
	}
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save writes v as indented JSON.
func (s *FileDocumentStore) Save(ctx context.Context, name string, v any) error {
	if err := ValidateDocumentName(name); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
