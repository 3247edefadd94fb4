package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/ilnaes/sharepad/internal/common"
	"github.com/ilnaes/sharepad/internal/rpc"
)

// NewAddr returns a fresh notepad address.
func NewAddr() string {
	return fmt.Sprintf("notepad-%s", strings.ToLower(ulid.Make().String()))
}

// Remote is a server reached over a websocket.
type Remote struct {
	peer *rpc.Peer
}

// Dial connects to the server at url as addr. Pushes from the server are
// handed to notepad.
func Dial(ctx context.Context, url, addr string, notepad common.Notepad, settings rpc.Settings) (*Remote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrConnectivity, err)
	}

	// the server binds our address from the first message
	if err := conn.WriteMessage(websocket.TextMessage, []byte(addr)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", common.ErrConnectivity, err)
	}

	handler := func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		var n common.Notification
		if err := json.Unmarshal(params, &n); err != nil {
			return nil, err
		}
		switch method {
		case common.UpdateDocument:
			return nil, notepad.UpdateDocument(ctx, n.Source, n.Name, n.Document)
		case common.NotifyDisconnection:
			return nil, notepad.NotifyDisconnection(ctx, n.Source)
		}
		return nil, fmt.Errorf("unknown method %q", method)
	}

	r := &Remote{
		peer: rpc.NewPeer(addr, conn, handler, settings),
	}
	go r.peer.Run()
	return r, nil
}

func (r *Remote) Close() error {
	return r.peer.Close()
}

// Done is closed once the connection is gone.
func (r *Remote) Done() <-chan struct{} {
	return r.peer.Done()
}

func (r *Remote) ConnectNotepad(ctx context.Context, addr string) (bool, error) {
	var ok bool
	err := r.peer.Call(ctx, common.ConnectNotepad, common.Request{Addr: addr}, &ok)
	return ok, err
}

func (r *Remote) DisconnectNotepad(ctx context.Context, addr string) error {
	return r.peer.Call(ctx, common.DisconnectNotepad, common.Request{Addr: addr}, nil)
}

func (r *Remote) GetDocumentList(ctx context.Context) ([]string, error) {
	var names []string
	err := r.peer.Call(ctx, common.GetDocumentList, nil, &names)
	return names, err
}

func (r *Remote) GetDocument(ctx context.Context, addr, name string) (*common.Document, error) {
	var doc *common.Document
	if err := r.peer.Call(ctx, common.GetDocument, common.Request{Addr: addr, Name: name}, &doc); err != nil {
		return nil, err
	}
	return orEmpty(doc), nil
}

func (r *Remote) NewDocument(ctx context.Context, addr, name string, lock bool) (*common.Document, error) {
	var doc *common.Document
	if err := r.peer.Call(ctx, common.MethodNewDocument, common.Request{Addr: addr, Name: name, Lock: lock}, &doc); err != nil {
		return nil, err
	}
	return orEmpty(doc), nil
}

func (r *Remote) CloseDocument(ctx context.Context, addr, name string, doc *common.Document) error {
	return r.peer.Call(ctx, common.CloseDocument, common.Request{Addr: addr, Name: name, Document: doc}, nil)
}

func (r *Remote) SaveDocument(ctx context.Context, addr, name string, doc *common.Document) (bool, error) {
	var ok bool
	err := r.peer.Call(ctx, common.SaveDocument, common.Request{Addr: addr, Name: name, Document: doc}, &ok)
	return ok, err
}

func (r *Remote) TryLockDocument(ctx context.Context, addr, name string) (bool, error) {
	var ok bool
	err := r.peer.Call(ctx, common.TryLockDocument, common.Request{Addr: addr, Name: name}, &ok)
	return ok, err
}

func (r *Remote) UnlockDocument(ctx context.Context, addr, name string, doc *common.Document) error {
	return r.peer.Call(ctx, common.UnlockDocument, common.Request{Addr: addr, Name: name, Document: doc}, nil)
}

func orEmpty(doc *common.Document) *common.Document {
	if doc == nil {
		return common.NewDocument()
	}
	return doc
}

// Connect dials the server at url and returns a connected controller with a
// fresh address.
func Connect(ctx context.Context, url string, settings rpc.Settings) (*Controller, error) {
	c := NewController(NewAddr(), nil)

	remote, err := Dial(ctx, url, c.addr, c, settings)
	if err != nil {
		return nil, err
	}
	c.server = remote
	c.closer = remote

	if err := c.Connect(ctx); err != nil {
		remote.Close()
		return nil, err
	}
	return c, nil
}
