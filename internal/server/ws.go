package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/ilnaes/sharepad/internal/common"
	"github.com/ilnaes/sharepad/internal/rpc"
)

// how long a new connection has to send its address
var HandshakeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// remoteNotepad pushes to a notepad over its websocket
type remoteNotepad struct {
	addr string
	peer *rpc.Peer
}

func (n *remoteNotepad) UpdateDocument(ctx context.Context, source, name string, doc *common.Document) error {
	return n.peer.Call(ctx, common.UpdateDocument, common.Notification{Source: source, Name: name, Document: doc}, nil)
}

func (n *remoteNotepad) NotifyDisconnection(ctx context.Context, source string) error {
	return n.peer.Call(ctx, common.NotifyDisconnection, common.Notification{Source: source}, nil)
}

// Endpoint serves notepads connecting over websockets.
type Endpoint struct {
	s        *Server
	settings rpc.Settings
}

func NewEndpoint(s *Server, settings rpc.Settings) *Endpoint {
	return &Endpoint{
		s:        s,
		settings: settings,
	}
}

// set up websocket
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[s]upgrade error = %s\n", err)
		return
	}

	// wait for address message
	conn.SetReadDeadline(time.Now().Add(HandshakeTimeout))
	_, res, err := conn.ReadMessage()
	if err != nil {
		glog.Infof("[s]handshake error = %s\n", err)
		conn.Close()
		return
	}
	addr := string(res)
	if addr == "" {
		glog.Infof("[s]handshake error = empty address\n")
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	n := &remoteNotepad{addr: addr}
	n.peer = rpc.NewPeer(addr, conn, e.handle, e.settings)

	e.s.directory.Bind(addr, n)
	glog.V(1).Infof("[s]bound %s\n", addr)

	n.peer.Run()

	e.s.directory.Unbind(addr, n)
	e.s.dropped(context.Background(), n)
}

// handle dispatches one inbound call to the Server
func (e *Endpoint) handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	var req common.Request
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
	}

	s := e.s
	switch method {
	case common.ConnectNotepad:
		return s.ConnectNotepad(ctx, req.Addr)
	case common.DisconnectNotepad:
		return nil, s.DisconnectNotepad(ctx, req.Addr)
	case common.GetDocumentList:
		return s.GetDocumentList(ctx)
	case common.GetDocument:
		return s.GetDocument(ctx, req.Addr, req.Name)
	case common.MethodNewDocument:
		return s.NewDocument(ctx, req.Addr, req.Name, req.Lock)
	case common.CloseDocument:
		return nil, s.CloseDocument(ctx, req.Addr, req.Name, req.Document)
	case common.SaveDocument:
		return s.SaveDocument(ctx, req.Addr, req.Name, req.Document)
	case common.TryLockDocument:
		return s.TryLockDocument(ctx, req.Addr, req.Name)
	case common.UnlockDocument:
		return nil, s.UnlockDocument(ctx, req.Addr, req.Name, req.Document)
	}
	return nil, fmt.Errorf("unknown method %q", method)
}
