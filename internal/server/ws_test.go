package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"github.com/ilnaes/sharepad/internal/common"
	"github.com/ilnaes/sharepad/internal/rpc"
)

func startEndpoint(t *testing.T, timeout time.Duration) (*testEnv, string) {
	old := HandshakeTimeout
	HandshakeTimeout = timeout
	t.Cleanup(func() { HandshakeTimeout = old })

	e := newTestEnv(t, map[string]string{"a.txt": "one"})
	ts := httptest.NewServer(Router(e.s, rpc.DefaultSettings()))
	t.Cleanup(ts.Close)

	return e, "ws" + strings.TrimPrefix(ts.URL, "http") + NotepadPath
}

func TestHandshakeTimeout(t *testing.T) {
	_, url := startEndpoint(t, 100*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Equal(t, nil, err)
	defer conn.Close()

	// never send an address
	start := time.Now()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, time.Since(start) < 4*time.Second)
}

func TestHandshakeDeadlineCleared(t *testing.T) {
	e, url := startEndpoint(t, 100*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, conn.WriteMessage(websocket.TextMessage, []byte("s1")))

	handler := func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		return nil, nil
	}
	p := rpc.NewPeer("s1", conn, handler, rpc.DefaultSettings())
	go p.Run()
	defer p.Close()

	// idle past the handshake deadline
	time.Sleep(300 * time.Millisecond)

	var ok bool
	err = p.Call(context.Background(), common.ConnectNotepad, common.Request{Addr: "s1"}, &ok)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ok)

	names, err := e.s.GetDocumentList(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"a.txt"}, names)
}
