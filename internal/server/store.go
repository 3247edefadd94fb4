package server

import (
	"context"
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/ilnaes/sharepad/internal/common"
)

// record is the authoritative state of one named document
type record struct {
	name string
	path string
	doc  *common.Document
}

// documentStore maps names to records and owns their persistence.
// Not safe for concurrent use; the Server serializes access.
type documentStore struct {
	storage Storage
	records map[string]*record
}

func newDocumentStore(storage Storage) *documentStore {
	return &documentStore{
		storage: storage,
		records: map[string]*record{},
	}
}

// registers every stored document, skipping unreadable ones
func (ds *documentStore) loadAll(ctx context.Context) error {
	names, err := ds.storage.List(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if ValidName(name) != nil {
			continue
		}
		r := &record{
			name: name,
			path: ds.storage.Path(name),
			doc:  common.NewDocument(),
		}
		ds.records[name] = r
		if err := ds.load(ctx, name); err != nil {
			glog.Errorf("[s]skip %s = %s\n", name, err)
			delete(ds.records, name)
			continue
		}
		glog.Infof("[s]loaded %s from %s\n", name, r.path)
	}
	return nil
}

func (ds *documentStore) get(name string) *record {
	return ds.records[name]
}

// load replaces the in-memory content with the stored text
func (ds *documentStore) load(ctx context.Context, name string) error {
	r, ok := ds.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}

	text, err := ds.storage.Read(ctx, name)
	if err != nil {
		return err
	}
	r.doc.FromString(text)
	return nil
}

func (ds *documentStore) save(ctx context.Context, name string) error {
	r, ok := ds.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	return ds.storage.Write(ctx, name, r.doc.String())
}

// replace swaps in new content without persisting it
func (ds *documentStore) replace(name string, doc *common.Document) {
	if r, ok := ds.records[name]; ok && doc != nil {
		r.doc = doc.Clone()
	}
}

func (ds *documentStore) create(ctx context.Context, name string, doc *common.Document) (*record, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	if _, ok := ds.records[name]; ok {
		return nil, fmt.Errorf("%w: %s", common.ErrAlreadyExists, name)
	}

	if err := ds.storage.Write(ctx, name, doc.String()); err != nil {
		return nil, err
	}

	r := &record{
		name: name,
		path: ds.storage.Path(name),
		doc:  doc,
	}
	ds.records[name] = r
	glog.V(1).Infof("[s]created %s at %s\n", name, r.path)
	return r, nil
}

// sorted for stable listings
func (ds *documentStore) names() []string {
	names := make([]string, 0, len(ds.records))
	for name := range ds.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
