// Package client implements the notepad side of a sharepad session: a
// controller holding one cached document that talks to the server and
// accepts its pushes.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/ilnaes/sharepad/internal/common"
)

var ErrNoDocument = errors.New("no open document")

// Event describes a replacement of the cached document. Document is nil when
// the document was dropped.
type Event struct {
	Source   string
	Name     string
	Document *common.Document
	Changes  []common.LineOp
}

// Controller is one notepad. Its public operations are serialized; pushes
// from the server only wait for the short state lock so they can be served
// while an operation is waiting on the server.
type Controller struct {
	addr   string
	server common.Coordinator
	closer io.Closer

	mu sync.Mutex // serializes operations

	state     sync.Mutex // protects the fields below
	doc       *common.Document
	name      string
	locked    bool
	connected bool
	onReplace []func(Event)
}

func NewController(addr string, server common.Coordinator) *Controller {
	return &Controller{
		addr:   addr,
		server: server,
	}
}

func (c *Controller) Addr() string {
	return c.addr
}

// OnReplace subscribes fn to replacements of the cached document.
func (c *Controller) OnReplace(fn func(Event)) {
	c.state.Lock()
	c.onReplace = append(c.onReplace, fn)
	c.state.Unlock()
}

// Connect registers this notepad with the server.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.server.ConnectNotepad(ctx, c.addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: server refused %s", common.ErrNotConnected, c.addr)
	}

	c.state.Lock()
	c.connected = true
	c.state.Unlock()
	glog.Infof("[c]%s connected\n", c.addr)
	return nil
}

func (c *Controller) DocumentList(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.server.GetDocumentList(ctx)
}

// Open closes the current document and opens name for reading.
func (c *Controller) Open(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.close(ctx); err != nil {
		return err
	}

	doc, err := c.server.GetDocument(ctx, c.addr, name)
	if err != nil {
		return err
	}
	c.replace(c.addr, name, doc, false)
	return nil
}

// Close releases the lock if held and closes the current document.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.close(ctx)
}

// New creates name on the server and opens it unlocked.
func (c *Controller) New(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.create(ctx, name, false)
}

// Save pushes the cached document to the server. It reports false when this
// notepad does not hold the lock.
func (c *Controller) Save(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.save(ctx)
}

// SaveAs stores the cached document under a new name, which becomes the
// open document. The lock state is carried over.
func (c *Controller) SaveAs(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Lock()
	doc := c.doc
	wasLocked := c.locked
	c.state.Unlock()
	if doc == nil {
		return ErrNoDocument
	}

	if err := c.create(ctx, name, true); err != nil {
		return err
	}

	c.state.Lock()
	c.doc = doc
	c.state.Unlock()

	if _, err := c.save(ctx); err != nil {
		return err
	}

	if !wasLocked {
		if err := c.unlock(ctx); err != nil {
			return err
		}
	}

	c.state.Lock()
	c.locked = wasLocked
	c.state.Unlock()
	return nil
}

// TryLock asks for the write lock on the open document. It never waits.
func (c *Controller) TryLock(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Lock()
	name, has, locked := c.name, c.doc != nil, c.locked
	c.state.Unlock()
	// trusts the local flag; a notepad the server pruned must reopen the
	// document before it can lock it again
	if !has || locked {
		return false, nil
	}

	ok, err := c.server.TryLockDocument(ctx, c.addr, name)
	if err != nil {
		return false, err
	}

	c.state.Lock()
	c.locked = ok
	c.state.Unlock()
	return ok, nil
}

// Unlock saves the cached document and releases the write lock.
func (c *Controller) Unlock(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.unlock(ctx)
}

// Edit runs fn on the cached document under the state lock.
func (c *Controller) Edit(fn func(doc *common.Document)) error {
	c.state.Lock()
	defer c.state.Unlock()

	if c.doc == nil {
		return ErrNoDocument
	}
	fn(c.doc)
	return nil
}

func (c *Controller) SelectLine(i int) (*common.Line, error) {
	var l *common.Line
	err := c.Edit(func(doc *common.Document) {
		l = doc.SelectLine(i)
	})
	return l, err
}

// Document returns a copy of the cached document, or nil.
func (c *Controller) Document() *common.Document {
	c.state.Lock()
	defer c.state.Unlock()

	if c.doc == nil {
		return nil
	}
	return c.doc.Clone()
}

func (c *Controller) HasDocument() bool {
	c.state.Lock()
	defer c.state.Unlock()
	return c.doc != nil
}

func (c *Controller) FileName() string {
	c.state.Lock()
	defer c.state.Unlock()
	return c.name
}

func (c *Controller) IsLocked() bool {
	c.state.Lock()
	defer c.state.Unlock()
	return c.locked
}

func (c *Controller) IsConnected() bool {
	c.state.Lock()
	defer c.state.Unlock()
	return c.connected
}

// UpdateDocument replaces the cached document with the server's copy of
// name. Pushes for any other document, or with nothing open, are dropped.
func (c *Controller) UpdateDocument(ctx context.Context, source, name string, doc *common.Document) error {
	if doc == nil {
		doc = common.NewDocument()
	}

	c.state.Lock()
	if c.doc == nil || name != c.name {
		c.state.Unlock()
		glog.V(1).Infof("[c]%s dropped update of %q from %s\n", c.addr, name, source)
		return nil
	}
	ev, subs := c.swap(source, name, doc, true)
	c.state.Unlock()

	glog.V(1).Infof("[c]%s update from %s\n", c.addr, source)
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// NotifyDisconnection forgets the open document; the server is going away.
func (c *Controller) NotifyDisconnection(ctx context.Context, source string) error {
	glog.Infof("[c]%s disconnected by %s\n", c.addr, source)

	c.state.Lock()
	name := c.name
	c.doc = nil
	c.name = ""
	c.locked = false
	c.connected = false
	subs := c.onReplace
	c.state.Unlock()

	for _, fn := range subs {
		fn(Event{Source: source, Name: name})
	}
	return nil
}

// Shutdown closes the open document, releasing the lock, and disconnects.
// Connectivity failures are ignored.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.close(ctx); err != nil && !errors.Is(err, common.ErrConnectivity) {
		glog.Errorf("[c]%s close = %s\n", c.addr, err)
	}

	if c.IsConnected() {
		if err := c.server.DisconnectNotepad(ctx, c.addr); err != nil && !errors.Is(err, common.ErrConnectivity) {
			glog.Errorf("[c]%s disconnect = %s\n", c.addr, err)
		}
	}

	c.state.Lock()
	c.connected = false
	c.state.Unlock()

	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// the functions below are called while holding c.mu

// close always reaches the server, which releases and persists the lock
// itself, so a failed persist still removes this notepad from the readers
func (c *Controller) close(ctx context.Context) error {
	c.state.Lock()
	name, doc := c.name, c.doc
	c.state.Unlock()
	if doc == nil {
		return nil
	}

	err := c.server.CloseDocument(ctx, c.addr, name, doc.Clone())

	c.state.Lock()
	c.doc = nil
	c.name = ""
	c.locked = false
	c.state.Unlock()
	return err
}

func (c *Controller) create(ctx context.Context, name string, lock bool) error {
	doc, err := c.server.NewDocument(ctx, c.addr, name, lock)
	if err != nil {
		return err
	}
	// the server closed whatever this notepad had open
	c.replace(c.addr, name, doc, false)

	c.state.Lock()
	c.locked = lock
	c.state.Unlock()
	return nil
}

func (c *Controller) save(ctx context.Context) (bool, error) {
	c.state.Lock()
	name, doc := c.name, c.doc
	c.state.Unlock()
	if doc == nil {
		return false, nil
	}

	return c.server.SaveDocument(ctx, c.addr, name, doc.Clone())
}

func (c *Controller) unlock(ctx context.Context) error {
	c.state.Lock()
	name, doc := c.name, c.doc
	c.state.Unlock()
	if doc == nil {
		return nil
	}

	if err := c.server.UnlockDocument(ctx, c.addr, name, doc.Clone()); err != nil {
		return err
	}

	c.state.Lock()
	c.locked = false
	c.state.Unlock()
	return nil
}

// replace swaps in doc and tells subscribers
func (c *Controller) replace(source, name string, doc *common.Document, pushed bool) {
	c.state.Lock()
	ev, subs := c.swap(source, name, doc, pushed)
	c.state.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// swap is called while holding c.state
func (c *Controller) swap(source, name string, doc *common.Document, pushed bool) (Event, []func(Event)) {
	var before []string
	if c.doc != nil {
		before = c.doc.Lines()
	}
	c.doc = doc
	c.name = name
	if !pushed {
		c.locked = false
	}
	ev := Event{
		Source:   source,
		Name:     name,
		Document: doc.Clone(),
		Changes:  common.DiffLines(before, doc.Lines()),
	}
	return ev, c.onReplace
}
