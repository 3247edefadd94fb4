package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/ilnaes/sharepad/internal/common"
	"github.com/ilnaes/sharepad/internal/rpc"
	"github.com/ilnaes/sharepad/internal/server"
)

func startServer(t *testing.T, files map[string]string) (*httptest.Server, string) {
	dir := t.TempDir()
	for name, text := range files {
		assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, name), []byte(text), 0644))
	}

	storage, err := server.NewFileStorage(dir)
	assert.Equal(t, nil, err)
	s, err := server.NewServer(context.Background(), server.DefaultSettings(), storage, server.NewDirectory())
	assert.Equal(t, nil, err)

	ts := httptest.NewServer(server.Router(s, rpc.DefaultSettings()))
	t.Cleanup(ts.Close)
	return ts, dir
}

func dial(t *testing.T, ts *httptest.Server) *Controller {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + server.NotepadPath
	c, err := Connect(context.Background(), url, rpc.DefaultSettings())
	assert.Equal(t, nil, err)
	return c
}

func TestNewAddr(t *testing.T) {
	a, b := NewAddr(), NewAddr()
	assert.Equal(t, true, strings.HasPrefix(a, "notepad-"))
	assert.NotEqual(t, a, b)
}

func TestRemoteSession(t *testing.T) {
	ctx := context.Background()
	ts, dir := startServer(t, map[string]string{"a.txt": "one"})

	c1 := dial(t, ts)
	c2 := dial(t, ts)
	assert.Equal(t, true, c1.IsConnected())

	names, err := c1.DocumentList(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"a.txt"}, names)

	assert.Equal(t, nil, c1.Open(ctx, "a.txt"))
	assert.Equal(t, nil, c2.Open(ctx, "a.txt"))
	assert.Equal(t, "one", c2.Document().String())

	ok, err := c1.TryLock(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ok)
	ok, err = c2.TryLock(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, false, ok)

	assert.Equal(t, nil, c1.Edit(func(doc *common.Document) {
		doc.InsertLine().SetText("two")
	}))
	ok, err = c1.Save(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ok)

	// the push completes before the save returns
	assert.Equal(t, "one\ntwo", c2.Document().String())

	b, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "one\ntwo", string(b))

	err = c2.Open(ctx, "missing.txt")
	assert.Equal(t, true, errors.Is(err, common.ErrNotFound))

	assert.Equal(t, nil, c1.Shutdown(ctx))
	assert.Equal(t, nil, c2.Shutdown(ctx))
}

func TestRemoteDropReleasesLock(t *testing.T) {
	ctx := context.Background()
	ts, _ := startServer(t, map[string]string{"a.txt": "one"})

	c1 := dial(t, ts)
	c2 := dial(t, ts)
	defer c2.Shutdown(ctx)

	assert.Equal(t, nil, c1.Open(ctx, "a.txt"))
	assert.Equal(t, nil, c2.Open(ctx, "a.txt"))
	ok, _ := c1.TryLock(ctx)
	assert.Equal(t, true, ok)

	// the connection goes away without a disconnect
	assert.Equal(t, nil, c1.closer.Close())

	deadline := time.Now().Add(5 * time.Second)
	for {
		ok, err := c2.TryLock(ctx)
		assert.Equal(t, nil, err)
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lock was not released")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDocumentsListing(t *testing.T) {
	ts, _ := startServer(t, map[string]string{"b.txt": "", "a.txt": ""})

	res, err := http.Get(ts.URL + server.DocumentsPath)
	assert.Equal(t, nil, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var names []string
	assert.Equal(t, nil, json.NewDecoder(res.Body).Decode(&names))
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}
