package server

import (
	"sort"
)

// writerSlot holds at most one address
type writerSlot struct {
	holder string
	held   bool
}

// tryAcquire occupies a free slot; it never waits
func (w *writerSlot) tryAcquire(addr string) bool {
	if w.held {
		return false
	}
	w.holder = addr
	w.held = true
	return true
}

// release vacates the slot if addr holds it
func (w *writerSlot) release(addr string) bool {
	if !w.holds(addr) {
		return false
	}
	w.holder = ""
	w.held = false
	return true
}

func (w *writerSlot) holds(addr string) bool {
	return w.held && w.holder == addr
}

// accessEntry tracks the readers of one document. The writer is always
// one of the readers.
type accessEntry struct {
	readers map[string]struct{}
	writer  writerSlot
}

func (e *accessEntry) isReader(addr string) bool {
	_, ok := e.readers[addr]
	return ok
}

// sorted so broadcasts go out in a stable order
func (e *accessEntry) readerList() []string {
	res := make([]string, 0, len(e.readers))
	for addr := range e.readers {
		res = append(res, addr)
	}
	sort.Strings(res)
	return res
}

// Not safe for concurrent use; the Server serializes access.
type accessTable struct {
	entries map[string]*accessEntry
}

func newAccessTable() *accessTable {
	return &accessTable{
		entries: map[string]*accessEntry{},
	}
}

func (t *accessTable) add(name string) *accessEntry {
	e := &accessEntry{
		readers: map[string]struct{}{},
	}
	t.entries[name] = e
	return e
}

func (t *accessTable) get(name string) *accessEntry {
	return t.entries[name]
}

func (t *accessTable) addReader(name, addr string) {
	if e, ok := t.entries[name]; ok {
		e.readers[addr] = struct{}{}
	}
}

// removeReader drops addr from the readers, vacating the writer slot if
// addr holds it. Returns whether addr was a reader and whether it was the
// writer.
func (t *accessTable) removeReader(name, addr string) (wasReader bool, wasWriter bool) {
	e, ok := t.entries[name]
	if !ok || !e.isReader(addr) {
		return false, false
	}
	delete(e.readers, addr)
	return true, e.writer.release(addr)
}

// tryLock succeeds only for a current reader when the slot is free
func (t *accessTable) tryLock(name, addr string) bool {
	e, ok := t.entries[name]
	if !ok || !e.isReader(addr) {
		return false
	}
	return e.writer.tryAcquire(addr)
}

func (t *accessTable) unlock(name, addr string) bool {
	e, ok := t.entries[name]
	if !ok {
		return false
	}
	return e.writer.release(addr)
}

func (t *accessTable) isWriter(name, addr string) bool {
	e, ok := t.entries[name]
	return ok && e.writer.holds(addr)
}

// documents addr currently reads, sorted
func (t *accessTable) readingOf(addr string) []string {
	res := []string{}
	for name, e := range t.entries {
		if e.isReader(addr) {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}
