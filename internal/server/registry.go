package server

import (
	"sort"

	"github.com/ilnaes/sharepad/internal/common"
)

type session struct {
	addr    string
	notepad common.Notepad
}

// registry maps notepad addresses to their callback handles.
// Not safe for concurrent use; the Server serializes access.
type registry struct {
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{
		sessions: map[string]*session{},
	}
}

func (r *registry) connect(addr string, notepad common.Notepad) {
	r.sessions[addr] = &session{
		addr:    addr,
		notepad: notepad,
	}
}

func (r *registry) remove(addr string) {
	delete(r.sessions, addr)
}

func (r *registry) get(addr string) *session {
	return r.sessions[addr]
}

func (r *registry) connected(addr string) bool {
	_, ok := r.sessions[addr]
	return ok
}

// lookupAddr reverse-maps a callback handle to its address, or "" if unknown
func (r *registry) lookupAddr(notepad common.Notepad) string {
	for _, s := range r.sessions {
		if s.notepad == notepad {
			return s.addr
		}
	}
	return ""
}

func (r *registry) addrs() []string {
	addrs := make([]string, 0, len(r.sessions))
	for addr := range r.sessions {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
