package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/droprelay/internal/domain/model"
)

// slotRecord is the serialized form shared by the network stores.
type slotRecord struct {
	JobID      string  `json:"job"`
	Name       string  `json:"name"`
	MS         float64 `json:"ms"`
	Players    string  `json:"players"`
	ObservedAt int64   `json:"observed_at"` // unix nanoseconds
	WrittenAt  int64   `json:"written_at"`  // unix nanoseconds
}

func toRecord(s Slot) slotRecord {
	return slotRecord{
		JobID:      s.Event.JobID,
		Name:       s.Event.Name,
		MS:         s.Event.MoneyPerSecond,
		Players:    s.Event.Players,
		ObservedAt: unixNano(s.Event.ObservedAt),
		WrittenAt:  unixNano(s.WrittenAt),
	}
}

func (r slotRecord) slot() Slot {
	return Slot{
		Event: model.DropEvent{
			JobID:          r.JobID,
			Name:           r.Name,
			MoneyPerSecond: r.MS,
			Players:        r.Players,
			ObservedAt:     fromUnixNano(r.ObservedAt),
		},
		WrittenAt: fromUnixNano(r.WrittenAt),
	}
}

func encodeSlot(s Slot) ([]byte, error) {
	return json.Marshal(toRecord(s))
}

func decodeSlot(data []byte) (Slot, error) {
	var r slotRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return Slot{}, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	return r.slot(), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
