package nfc

import "errors"

var (
	// ErrInvalidState is returned when an operation is not legal in the current reader state.
	ErrInvalidState = errors.New("invalid reader state")
	// ErrNotFound is returned when a card id is not part of the catalog.
	ErrNotFound = errors.New("card not found")
	// ErrTypeMismatch is returned when an operation needs a different card type than the inserted one.
	ErrTypeMismatch = errors.New("card type mismatch")
	// ErrCorruptData is returned when data stored on a card cannot be decoded.
	ErrCorruptData = errors.New("corrupt card data")
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("reader closed")
)
