package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilnaes/sharepad/internal/common"
)

// Storage persists document text by name. Every failure wraps common.ErrIO
// except a read of an unknown name, which wraps common.ErrNotFound.
type Storage interface {
	// names of all stored documents
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) (string, error)
	// Write overwrites the whole text, creating the entry if needed.
	Write(ctx context.Context, name, text string) error
	// Path locates name in the backend.
	Path(name string) string
}

// ValidName reports whether name can be used as a document name.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}
	return nil
}

// FileStorage keeps one flat text file per document inside a directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) Path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *FileStorage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (f *FileStorage) Read(ctx context.Context, name string) (string, error) {
	b, err := os.ReadFile(f.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", common.ErrNotFound, name)
	} else if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	return string(b), nil
}

func (f *FileStorage) Write(ctx context.Context, name, text string) error {
	if err := os.WriteFile(f.Path(name), []byte(text), 0644); err != nil {
		return fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	return nil
}
