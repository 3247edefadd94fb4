package common

import (
	"context"
)

// server methods
const (
	ConnectNotepad    = "connectNotepad"
	DisconnectNotepad = "disconnectNotepad"
	GetDocumentList   = "getDocumentList"
	GetDocument       = "getDocument"
	MethodNewDocument = "newDocument"
	CloseDocument     = "closeDocument"
	SaveDocument      = "saveDocument"
	TryLockDocument   = "tryLockDocument"
	UnlockDocument    = "unlockDocument"
)

// client callback methods
const (
	UpdateDocument      = "updateDocument"
	NotifyDisconnection = "notifyDisconnection"
)

// Request carries the parameters of every server method. Unused fields are
// left empty.
type Request struct {
	Addr     string    `json:"addr,omitempty"`
	Name     string    `json:"name,omitempty"`
	Lock     bool      `json:"lock,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Notification carries the parameters of the client callback methods.
type Notification struct {
	Source   string    `json:"source"`
	Name     string    `json:"name,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Coordinator is the contract the server exposes to notepads.
type Coordinator interface {
	ConnectNotepad(ctx context.Context, addr string) (bool, error)
	DisconnectNotepad(ctx context.Context, addr string) error
	GetDocumentList(ctx context.Context) ([]string, error)
	GetDocument(ctx context.Context, addr, name string) (*Document, error)
	NewDocument(ctx context.Context, addr, name string, lock bool) (*Document, error)
	CloseDocument(ctx context.Context, addr, name string, doc *Document) error
	SaveDocument(ctx context.Context, addr, name string, doc *Document) (bool, error)
	TryLockDocument(ctx context.Context, addr, name string) (bool, error)
	UnlockDocument(ctx context.Context, addr, name string, doc *Document) error
}

// Notepad is the contract a notepad exposes to the server for pushes.
type Notepad interface {
	UpdateDocument(ctx context.Context, source, name string, doc *Document) error
	NotifyDisconnection(ctx context.Context, source string) error
}
