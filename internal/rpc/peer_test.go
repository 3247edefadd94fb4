package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"github.com/ilnaes/sharepad/internal/common"
)

type echoParams struct {
	Text string `json:"text"`
}

// starts a websocket server whose peer serves handler, and returns a
// connected client peer serving clientHandler
func testPeers(t *testing.T, handler Handler, clientHandler Handler) (*Peer, chan *Peer) {
	serverPeers := make(chan *Peer, 1)

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p := NewPeer("server", conn, handler, DefaultSettings())
		serverPeers <- p
		p.Run()
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Equal(t, nil, err)

	p := NewPeer("client", conn, clientHandler, DefaultSettings())
	go p.Run()
	t.Cleanup(func() { p.Close() })
	return p, serverPeers
}

func echo(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "echo":
		var v echoParams
		if err := json.Unmarshal(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "missing":
		return nil, fmt.Errorf("%w: nothing here", common.ErrNotFound)
	case "sleep":
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	}
	return nil, errors.New("unknown method")
}

func TestCall(t *testing.T) {
	p, _ := testPeers(t, echo, echo)

	var res echoParams
	err := p.Call(context.Background(), "echo", echoParams{Text: "hello"}, &res)
	assert.Equal(t, nil, err)
	assert.Equal(t, "hello", res.Text)
}

func TestCallErrorKind(t *testing.T) {
	p, _ := testPeers(t, echo, echo)

	err := p.Call(context.Background(), "missing", nil, nil)
	assert.Equal(t, true, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "document not found: nothing here", err.Error())

	err = p.Call(context.Background(), "bogus", nil, nil)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, false, errors.Is(err, common.ErrConnectivity))
}

func TestCallBothDirections(t *testing.T) {
	p, serverPeers := testPeers(t, echo, echo)

	// the server only learns about its peer once the client has connected
	var res echoParams
	assert.Equal(t, nil, p.Call(context.Background(), "echo", echoParams{Text: "up"}, &res))

	sp := <-serverPeers
	assert.Equal(t, nil, sp.Call(context.Background(), "echo", echoParams{Text: "down"}, &res))
	assert.Equal(t, "down", res.Text)
}

func TestCallTimeoutIsConnectivity(t *testing.T) {
	p, _ := testPeers(t, echo, echo)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Call(ctx, "sleep", nil, nil)
	assert.Equal(t, true, errors.Is(err, common.ErrConnectivity))
}

func TestCallAfterClose(t *testing.T) {
	p, serverPeers := testPeers(t, echo, echo)
	assert.Equal(t, nil, p.Call(context.Background(), "echo", echoParams{}, nil))

	sp := <-serverPeers
	sp.Close()

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client peer did not observe close")
	}

	err := p.Call(context.Background(), "echo", echoParams{}, nil)
	assert.Equal(t, true, errors.Is(err, common.ErrConnectivity))
	assert.Equal(t, true, errors.Is(p.Err(), common.ErrConnectivity))
}
