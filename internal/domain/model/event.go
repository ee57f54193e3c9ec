// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DefaultPlayers is used when a feed record carries no players field.
const DefaultPlayers = "Unknown"

// Sentinel errors for drop construction.
var (
	ErrMissingJobID = errors.New("missing job id")
	ErrMissingName  = errors.New("missing name")
	ErrInvalidMoney = errors.New("money per second must be a non-negative number")
)

// DropEvent is a single observed drop. Treat it as a value: it is never
// modified after construction and is superseded by the next accepted write.
type DropEvent struct {
	JobID          string    // dedup key
	Name           string    // display name of the subject
	MoneyPerSecond float64   // rate value, >= 0
	Players        string    // free-form participant info, e.g. "12/50"
	ObservedAt     time.Time // stamped at ingestion, never supplied by the feed
}

// NewDropEvent validates the inputs and builds a DropEvent.
func NewDropEvent(jobID, name string, moneyPerSecond float64, players string, observedAt time.Time) (DropEvent, error) {
	switch {
	case strings.TrimSpace(jobID) == "":
		return DropEvent{}, ErrMissingJobID
	case strings.TrimSpace(name) == "":
		return DropEvent{}, ErrMissingName
	case moneyPerSecond < 0 || math.IsNaN(moneyPerSecond) || math.IsInf(moneyPerSecond, 0):
		return DropEvent{}, ErrInvalidMoney
	}
	return DropEvent{
		JobID:          jobID,
		Name:           name,
		MoneyPerSecond: moneyPerSecond,
		Players:        players,
		ObservedAt:     observedAt,
	}, nil
}

// IsZero reports whether e is the empty drop.
func (e DropEvent) IsZero() bool {
	return e.JobID == "" && e.Name == "" && e.MoneyPerSecond == 0 && e.Players == "" && e.ObservedAt.IsZero()
}

// Field is one named value of a raw feed record.
type Field struct {
	Name  string
	Value string
}

// Record is a feed-neutral structured message: an ordered list of fields
// whose first value names the subject.
type Record struct {
	Source    string // feed that produced the record, e.g. "gateway", "kafka"
	ChannelID string
	Fields    []Field
}
