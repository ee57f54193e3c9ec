// Package repository holds the single-slot stores backing the drop cache.
package repository

import (
	"context"
	"time"

	"github.com/okian/droprelay/internal/domain/model"
)

// Slot is the stored unit: one drop and the time it was written.
type Slot struct {
	Event     model.DropEvent
	WrittenAt time.Time
}

// Store provides whole-value read/write access to the slot.
// Implementations must never expose a partially written Slot.
type Store interface {
	// Write replaces the slot.
	Write(ctx context.Context, slot Slot) error

	// Read returns the stored slot. ok is false when nothing was ever
	// written or the backend already expired the value.
	Read(ctx context.Context) (slot Slot, ok bool, err error)

	// Backend names the implementation, e.g. "memory" or "redis".
	Backend() string

	Close() error
}
