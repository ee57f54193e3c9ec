// Package parser turns loosely structured feed records into drop events.
package parser

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/okian/droprelay/internal/domain/model"
)

// Reason explains why a record did not become a drop. Empty means success.
type Reason string

// Discard reasons, used as metric labels.
const (
	ReasonNone         Reason = ""
	ReasonNoFields     Reason = "no_fields"
	ReasonMissingName  Reason = "missing_name"
	ReasonMissingMoney Reason = "missing_money"
	ReasonMissingJobID Reason = "missing_job_id"
	ReasonBadMoney     Reason = "bad_money"
)

// Parser converts raw records into drops. The zero value is not usable; use New.
type Parser struct {
	now func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the clock used to stamp ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var valueCleaner = strings.NewReplacer("**", "")

var moneyCleaner = strings.NewReplacer("$", "", ",", "", "**", "")

// OK reports whether the parse produced a drop.
func (r Reason) OK() bool { return r == ReasonNone }

// Parse extracts a drop from rec. Malformed input is not an error: it yields
// the zero drop and the reason it was rejected.
func (p *Parser) Parse(rec model.Record) (model.DropEvent, Reason) {
	if len(rec.Fields) == 0 {
		return model.DropEvent{}, ReasonNoFields
	}

	name := cleanValue(rec.Fields[0].Value)
	var money, players, jobID string

	// Later fields overwrite earlier ones with the same meaning.
	for _, f := range rec.Fields[1:] {
		key := normalizeName(f.Name)
		switch {
		case strings.Contains(key, "moneypersec") || strings.Contains(key, "money/s"):
			money = cleanMoney(f.Value)
		case strings.Contains(key, "players"):
			players = cleanValue(f.Value)
		case strings.Contains(key, "jobid"):
			jobID = cleanValue(f.Value)
		}
	}

	switch {
	case name == "":
		return model.DropEvent{}, ReasonMissingName
	case money == "":
		return model.DropEvent{}, ReasonMissingMoney
	case jobID == "":
		return model.DropEvent{}, ReasonMissingJobID
	}

	ms, ok := ExtractNumber(money)
	if !ok {
		return model.DropEvent{}, ReasonBadMoney
	}
	if players == "" {
		players = model.DefaultPlayers
	}

	event, err := model.NewDropEvent(jobID, name, ms, players, p.now())
	if err != nil {
		return model.DropEvent{}, ReasonBadMoney
	}
	return event, ReasonNone
}

// ExtractNumber finds the first run of digits, with at most one decimal
// point, in s and parses it. "1234.5M/s" -> 1234.5; "no numbers" -> false.
func ExtractNumber(s string) (float64, bool) {
	i := 0
	for i < len(s) && !isDigit(s[i]) && (s[i] != '.' || i+1 >= len(s) || !isDigit(s[i+1])) {
		i++
	}
	if i == len(s) {
		return 0, false
	}

	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '.' {
		k := j + 1
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j+1 {
			j = k
		}
	}

	v, err := strconv.ParseFloat(s[i:j], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

func cleanValue(v string) string {
	return strings.TrimSpace(valueCleaner.Replace(v))
}

func cleanMoney(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, moneyCleaner.Replace(v))
}
