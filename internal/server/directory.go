package server

import (
	"fmt"
	"sync"

	"github.com/ilnaes/sharepad/internal/common"
)

// Directory binds notepad addresses to live callback handles. Remote
// notepads are bound by the websocket endpoint; in-process notepads can be
// bound directly.
type Directory struct {
	bindings map[string]common.Notepad

	sync.Mutex
}

func NewDirectory() *Directory {
	return &Directory{
		bindings: map[string]common.Notepad{},
	}
}

// Bind replaces any previous binding for addr.
func (d *Directory) Bind(addr string, notepad common.Notepad) {
	d.Lock()
	d.bindings[addr] = notepad
	d.Unlock()
}

// Unbind removes the binding for addr if it still points at notepad.
func (d *Directory) Unbind(addr string, notepad common.Notepad) {
	d.Lock()
	if d.bindings[addr] == notepad {
		delete(d.bindings, addr)
	}
	d.Unlock()
}

func (d *Directory) Lookup(addr string) (common.Notepad, error) {
	d.Lock()
	defer d.Unlock()

	notepad, ok := d.bindings[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s not bound", common.ErrNotConnected, addr)
	}
	return notepad, nil
}
