package repository

import "errors"

// Sentinel kinds for slot store errors.
var (
	ErrUnsupportedStore = errors.New("unsupported store url")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrCorruptSlot      = errors.New("corrupt slot")
)
