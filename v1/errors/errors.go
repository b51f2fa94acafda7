package errors

import "errors"

var (
	ErrTimeout            = errors.New("timeout")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
