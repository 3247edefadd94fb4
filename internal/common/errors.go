package common

import "errors"

var (
	// ErrNotFound indicates an unknown document name.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists indicates a name collision on create.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrIO indicates a persistence failure.
	ErrIO = errors.New("storage failure")

	// ErrConnectivity indicates the peer could not be reached.
	ErrConnectivity = errors.New("peer unreachable")

	// ErrNotConnected indicates an operation by an address that has no session.
	ErrNotConnected = errors.New("notepad not connected")

	// ErrInvalidName indicates a document name that cannot be stored.
	ErrInvalidName = errors.New("invalid document name")
)

// error kinds as they travel over the wire
const (
	KindNotFound      = "NotFound"
	KindAlreadyExists = "AlreadyExists"
	KindIO            = "IOError"
	KindConnectivity  = "ConnectivityError"
	KindNotConnected  = "NotConnected"
	KindInvalidName   = "InvalidName"
	KindUnknown       = "Unknown"
)

var kinds = []struct {
	kind string
	err  error
}{
	{KindNotFound, ErrNotFound},
	{KindAlreadyExists, ErrAlreadyExists},
	{KindIO, ErrIO},
	{KindConnectivity, ErrConnectivity},
	{KindNotConnected, ErrNotConnected},
	{KindInvalidName, ErrInvalidName},
}

// Kind classifies err into one of the wire kinds.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// KindError returns the sentinel for a wire kind, or nil if unknown.
func KindError(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
