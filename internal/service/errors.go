package service

import "errors"

var (
	// ErrInvalidInput rejects a malformed request before any state change.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means the referenced transaction (or record) does not exist.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidState means the operation is not legal for the transaction's
	// current status; callers should re-read state before retrying.
	ErrInvalidState = errors.New("invalid transaction state")
)
