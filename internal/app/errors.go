package service

import "errors"

// Sentinel errors returned by the Service.
var (
	// ErrInvalidUpdate marks a manual update rejected for its content.
	ErrInvalidUpdate = errors.New("invalid update")
)
