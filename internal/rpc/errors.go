package rpc

import (
	"github.com/ilnaes/sharepad/internal/common"
)

// Error is the wire form of a failed call.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewError(err error) *Error {
	return &Error{
		Kind:    common.Kind(err),
		Message: err.Error(),
	}
}

func (e *Error) Error() string {
	return e.Message
}

// Err rebuilds the error so that errors.Is matches the sentinel of its kind.
func (e *Error) Err() error {
	if sentinel := common.KindError(e.Kind); sentinel != nil {
		return &remoteError{msg: e.Message, kind: sentinel}
	}
	return e
}

type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.kind
}
