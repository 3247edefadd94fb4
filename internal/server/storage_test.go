package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/ilnaes/sharepad/internal/common"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := NewFileStorage(dir)
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, fs.Write(ctx, "a.txt", "one\ntwo"))
	assert.Equal(t, nil, fs.Write(ctx, "b.txt", ""))
	assert.Equal(t, nil, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	names, err := fs.List(ctx)
	assert.Equal(t, nil, err)
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	text, err := fs.Read(ctx, "a.txt")
	assert.Equal(t, nil, err)
	assert.Equal(t, "one\ntwo", text)

	// overwritten wholesale
	assert.Equal(t, nil, fs.Write(ctx, "a.txt", "x"))
	b, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "x", string(b))

	_, err = fs.Read(ctx, "missing.txt")
	assert.Equal(t, true, errors.Is(err, common.ErrNotFound))

	assert.Equal(t, filepath.Join(dir, "a.txt"), fs.Path("a.txt"))
}

func TestFileStorageWriteFailure(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	assert.Equal(t, nil, err)

	// a directory in the way of the file
	assert.Equal(t, nil, os.Mkdir(filepath.Join(dir, "taken"), 0755))
	err = fs.Write(context.Background(), "taken", "text")
	assert.Equal(t, true, errors.Is(err, common.ErrIO))
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"a.txt", "notes", ".hidden", "with space"} {
		assert.Equal(t, nil, ValidName(name))
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		assert.Equal(t, true, errors.Is(ValidName(name), common.ErrInvalidName))
	}
}
