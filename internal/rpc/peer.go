// Package rpc runs symmetric request/response calls over a single websocket
// connection. Either end may call the other; replies are matched by id.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/ilnaes/sharepad/internal/common"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultCallTimeout  = 30 * time.Second
)

// Message is the single frame type exchanged by peers.
type Message struct {
	Id     uint64          `json:"id"`
	Reply  bool            `json:"reply,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Handler serves an inbound call. The returned value is encoded as the result.
type Handler func(ctx context.Context, method string, params json.RawMessage) (any, error)

type Settings struct {
	WriteTimeout time.Duration
	// applied to calls whose context has no deadline
	CallTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		WriteTimeout: DefaultWriteTimeout,
		CallTimeout:  DefaultCallTimeout,
	}
}

type Peer struct {
	tag      string
	conn     *websocket.Conn
	handler  Handler
	settings Settings

	ctx    context.Context
	cancel context.CancelFunc

	wmu sync.Mutex // protects concurrent conn writes

	mu      sync.Mutex // protects the fields below
	nextId  uint64
	pending map[uint64]chan *Message
	err     error
}

func NewPeer(tag string, conn *websocket.Conn, handler Handler, settings Settings) *Peer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Peer{
		tag:      tag,
		conn:     conn,
		handler:  handler,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		pending:  map[uint64]chan *Message{},
	}
}

// thread-safe websocket writing
func (p *Peer) write(m *Message) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	if p.settings.WriteTimeout > 0 {
		p.conn.SetWriteDeadline(time.Now().Add(p.settings.WriteTimeout))
	}
	return p.conn.WriteJSON(m)
}

// Run reads frames until the connection fails or the peer is closed.
// Inbound calls are each served on their own goroutine.
func (p *Peer) Run() {
	defer p.close(nil)

	for {
		var m Message
		if err := p.conn.ReadJSON(&m); err != nil {
			select {
			case <-p.ctx.Done():
			default:
				glog.Infof("[rpc]%s<- error = %s\n", p.tag, err)
				p.close(err)
			}
			return
		}

		if m.Reply {
			p.mu.Lock()
			ch, ok := p.pending[m.Id]
			delete(p.pending, m.Id)
			p.mu.Unlock()
			if ok {
				ch <- &m
			} else {
				glog.V(2).Infof("[rpc]%s<- stale reply %d\n", p.tag, m.Id)
			}
		} else {
			go p.serve(m)
		}
	}
}

func (p *Peer) serve(m Message) {
	glog.V(2).Infof("[rpc]%s<- %s(%d)\n", p.tag, m.Method, m.Id)

	reply := &Message{
		Id:    m.Id,
		Reply: true,
	}

	res, err := p.handler(p.ctx, m.Method, m.Params)
	if err != nil {
		reply.Error = NewError(err)
	} else if res != nil {
		b, err := json.Marshal(res)
		if err != nil {
			reply.Error = NewError(err)
		} else {
			reply.Result = b
		}
	}

	if err := p.write(reply); err != nil {
		glog.Infof("[rpc]%s-> reply error = %s\n", p.tag, err)
		p.close(err)
	}
}

// Call invokes method on the far end and decodes its result into result,
// which may be nil. Transport failures are reported as ErrConnectivity.
func (p *Peer) Call(ctx context.Context, method string, params any, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok && p.settings.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.CallTimeout)
		defer cancel()
	}

	ch := make(chan *Message, 1)

	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.nextId++
	id := p.nextId
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	glog.V(2).Infof("[rpc]%s-> %s(%d)\n", p.tag, method, id)
	if err := p.write(&Message{Id: id, Method: method, Params: raw}); err != nil {
		p.close(err)
		return fmt.Errorf("%w: %s: %s", common.ErrConnectivity, method, err)
	}

	var reply *Message
	select {
	case reply = <-ch:
	case <-p.ctx.Done():
		// the reply may have raced the close
		select {
		case reply = <-ch:
		default:
			return p.Err()
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %s", common.ErrConnectivity, method, ctx.Err())
	}

	if reply.Error != nil {
		return reply.Error.Err()
	}
	if result != nil && len(reply.Result) > 0 {
		return json.Unmarshal(reply.Result, result)
	}
	return nil
}

func (p *Peer) close(cause error) {
	p.mu.Lock()
	if p.err == nil {
		if cause == nil {
			cause = errors.New("closed")
		}
		p.err = fmt.Errorf("%w: %s: %s", common.ErrConnectivity, p.tag, cause)
	}
	p.mu.Unlock()

	p.cancel()
	p.conn.Close()
}

// Close shuts the connection down. Pending and future calls fail with
// ErrConnectivity.
func (p *Peer) Close() error {
	p.wmu.Lock()
	p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.wmu.Unlock()

	p.close(nil)
	return nil
}

func (p *Peer) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Err returns the reason the peer closed, or nil while it is live.
func (p *Peer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
