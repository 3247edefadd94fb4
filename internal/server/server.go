package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/ilnaes/sharepad/internal/common"
)

const (
	DefaultCallbackTimeout = 5 * time.Second
)

type Settings struct {
	// identity sent as the source of pushes
	Addr string
	// bound on each push to a notepad; a timeout prunes the notepad
	CallbackTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Addr:            "sharepad",
		CallbackTimeout: DefaultCallbackTimeout,
	}
}

// Server coordinates readers and the single writer of every document.
// Every public operation runs under the one Server lock, including the
// pushes it makes to notepads.
type Server struct {
	settings  Settings
	directory *Directory

	sessions *registry
	access   *accessTable
	store    *documentStore

	sync.Mutex // protects sessions, access and store
}

// NewServer registers every document found in storage.
func NewServer(ctx context.Context, settings Settings, storage Storage, directory *Directory) (*Server, error) {
	if settings.CallbackTimeout <= 0 {
		settings.CallbackTimeout = DefaultCallbackTimeout
	}

	s := &Server{
		settings:  settings,
		directory: directory,
		sessions:  newRegistry(),
		access:    newAccessTable(),
		store:     newDocumentStore(storage),
	}

	if err := s.store.loadAll(ctx); err != nil {
		return nil, err
	}
	for _, name := range s.store.names() {
		s.access.add(name)
	}
	return s, nil
}

func (s *Server) Addr() string {
	return s.settings.Addr
}

func (s *Server) ConnectNotepad(ctx context.Context, addr string) (bool, error) {
	s.Lock()
	defer s.Unlock()

	notepad, err := s.directory.Lookup(addr)
	if err != nil {
		glog.Infof("[s]connect %s = %s\n", addr, err)
		return false, nil
	}
	s.sessions.connect(addr, notepad)
	glog.Infof("[s]connect %s\n", addr)
	return true, nil
}

func (s *Server) DisconnectNotepad(ctx context.Context, addr string) error {
	s.Lock()
	defer s.Unlock()

	s.disconnect(ctx, addr)
	return nil
}

func (s *Server) GetDocumentList(ctx context.Context) ([]string, error) {
	s.Lock()
	defer s.Unlock()

	return s.store.names(), nil
}

func (s *Server) GetDocument(ctx context.Context, addr, name string) (*common.Document, error) {
	s.Lock()
	defer s.Unlock()

	return s.open(ctx, addr, name)
}

func (s *Server) NewDocument(ctx context.Context, addr, name string, lock bool) (*common.Document, error) {
	s.Lock()
	defer s.Unlock()

	if !s.sessions.connected(addr) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotConnected, addr)
	}

	if _, err := s.store.create(ctx, name, common.NewDocument()); err != nil {
		return nil, err
	}
	s.access.add(name)
	glog.Infof("[s]new %s\n", name)

	doc, err := s.open(ctx, addr, name)
	if err != nil {
		return nil, err
	}
	if lock && s.access.tryLock(name, addr) {
		glog.Infof("[s]lock %s by %s\n", name, addr)
	}
	return doc, nil
}

func (s *Server) CloseDocument(ctx context.Context, addr, name string, doc *common.Document) error {
	s.Lock()
	defer s.Unlock()

	if s.store.get(name) == nil {
		return fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}

	err := s.unlock(ctx, addr, name, doc)
	if wasReader, _ := s.access.removeReader(name, addr); wasReader {
		glog.Infof("[s]close %s by %s\n", name, addr)
	}
	s.reloadIfIdle(ctx, name)
	return err
}

func (s *Server) SaveDocument(ctx context.Context, addr, name string, doc *common.Document) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.store.get(name) == nil || !s.access.isWriter(name, addr) {
		return false, nil
	}

	s.store.replace(name, doc)
	err := s.store.save(ctx, name)
	s.notifyModification(ctx, name, addr)
	if err != nil {
		glog.Errorf("[s]save %s = %s\n", name, err)
		return false, err
	}
	glog.Infof("[s]save %s by %s\n", name, addr)
	return true, nil
}

func (s *Server) TryLockDocument(ctx context.Context, addr, name string) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.store.get(name) == nil {
		return false, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}

	if s.access.tryLock(name, addr) {
		glog.Infof("[s]lock %s by %s\n", name, addr)
		return true, nil
	}
	glog.V(1).Infof("[s]lock %s by %s refused\n", name, addr)
	return false, nil
}

func (s *Server) UnlockDocument(ctx context.Context, addr, name string, doc *common.Document) error {
	s.Lock()
	defer s.Unlock()

	if s.store.get(name) == nil {
		return fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	return s.unlock(ctx, addr, name, doc)
}

// Shutdown disconnects every notepad and tells each one the server is going
// away. Notification failures are logged only.
func (s *Server) Shutdown(ctx context.Context) {
	s.Lock()
	defer s.Unlock()

	for _, addr := range s.sessions.addrs() {
		sess := s.sessions.get(addr)
		s.disconnect(ctx, addr)

		cctx, cancel := context.WithTimeout(ctx, s.settings.CallbackTimeout)
		if err := sess.notepad.NotifyDisconnection(cctx, s.settings.Addr); err != nil {
			glog.Infof("[s]notify disconnection %s = %s\n", addr, err)
		}
		cancel()
	}
}

// dropped cleans up after a notepad whose transport went away
func (s *Server) dropped(ctx context.Context, notepad common.Notepad) {
	s.Lock()
	defer s.Unlock()

	if addr := s.sessions.lookupAddr(notepad); addr != "" {
		glog.Infof("[s]lost %s\n", addr)
		s.disconnect(ctx, addr)
	}
}

// the functions below are called while holding the Server lock

func (s *Server) open(ctx context.Context, addr, name string) (*common.Document, error) {
	r := s.store.get(name)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	if !s.sessions.connected(addr) {
		return nil, fmt.Errorf("%w: %s", common.ErrNotConnected, addr)
	}

	// one open document per notepad
	s.closeAll(ctx, addr)

	s.access.addReader(name, addr)
	glog.Infof("[s]open %s by %s\n", name, addr)
	return s.store.get(name).doc.Clone(), nil
}

// unlock persists doc and pushes it to the other readers if addr held the
// writer slot; otherwise it does nothing
func (s *Server) unlock(ctx context.Context, addr, name string, doc *common.Document) error {
	if !s.access.unlock(name, addr) {
		return nil
	}
	glog.Infof("[s]unlock %s by %s\n", name, addr)

	s.store.replace(name, doc)
	err := s.store.save(ctx, name)
	s.notifyModification(ctx, name, addr)
	if err != nil {
		glog.Errorf("[s]save %s = %s\n", name, err)
	}
	return err
}

// closeAll removes addr from every reader set, dropping the writer slot
// without persisting
func (s *Server) closeAll(ctx context.Context, addr string) {
	for _, name := range s.access.readingOf(addr) {
		if _, wasWriter := s.access.removeReader(name, addr); wasWriter {
			glog.Infof("[s]unlock %s for %s\n", name, addr)
		}
		glog.Infof("[s]close %s for %s\n", name, addr)
		s.reloadIfIdle(ctx, name)
	}
}

func (s *Server) disconnect(ctx context.Context, addr string) {
	s.closeAll(ctx, addr)
	if s.sessions.get(addr) != nil {
		s.sessions.remove(addr)
		glog.Infof("[s]disconnect %s\n", addr)
	}
}

// once nobody reads a document, the stored text wins over memory
func (s *Server) reloadIfIdle(ctx context.Context, name string) {
	e := s.access.get(name)
	if e == nil || len(e.readers) > 0 {
		return
	}
	if err := s.store.load(ctx, name); err != nil {
		glog.Errorf("[s]reload %s = %s\n", name, err)
	}
}

// notifyModification pushes the current content to every reader but origin.
// Unreachable readers are disconnected.
func (s *Server) notifyModification(ctx context.Context, name, origin string) {
	e := s.access.get(name)
	r := s.store.get(name)
	if e == nil || r == nil {
		return
	}

	for _, addr := range e.readerList() {
		if addr == origin {
			continue
		}
		sess := s.sessions.get(addr)
		if sess == nil {
			continue
		}

		cctx, cancel := context.WithTimeout(context.Background(), s.settings.CallbackTimeout)
		err := sess.notepad.UpdateDocument(cctx, s.settings.Addr, name, r.doc.Clone())
		cancel()

		if errors.Is(err, common.ErrConnectivity) {
			glog.Infof("[s]notify %s of %s = %s\n", addr, name, err)
			s.disconnect(ctx, addr)
		} else if err != nil {
			glog.Errorf("[s]notify %s of %s = %s\n", addr, name, err)
		} else {
			glog.V(1).Infof("[s]notify %s of %s\n", addr, name)
		}
	}
}
