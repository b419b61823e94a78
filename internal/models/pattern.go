package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPattern marks recurrence data that is present but unusable.
// Callers can distinguish it from the absent-pattern case, which parses
// to a nil pattern with no error.
var ErrInvalidPattern = errors.New("invalid recurrence pattern")

// Frequency is the unit a recurrence repeats in.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurrencePattern is the declarative repeat configuration embedded in a
// recurring task. Fields irrelevant to the active Type are ignored rather
// than rejected.
type RecurrencePattern struct {
	Type     Frequency `json:"type"`
	Interval int       `json:"interval"`

	// DaysOfWeek holds weekday indices (0=Sunday..6=Saturday), weekly only.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`

	// DayOfMonth is 1-31, monthly only; clamped to the last valid day of
	// the target month.
	DayOfMonth *int `json:"dayOfMonth,omitempty"`

	// MonthOfYear is 1-12, yearly only.
	MonthOfYear *int `json:"monthOfYear,omitempty"`

	// EndDate cuts the recurrence off. An occurrence landing exactly on
	// EndDate is still produced.
	EndDate *time.Time `json:"endDate,omitempty"`

	// MaxOccurrences caps how many instances a single generation run may
	// produce from this pattern.
	MaxOccurrences *int `json:"maxOccurrences,omitempty"`
}

// RawPattern is the recurrence column payload. It stores as text, not as a
// database JSON type, so rows with corrupt pattern data survive until
// ParsePattern classifies them.
type RawPattern []byte

func (p RawPattern) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return string(p), nil
}

func (p *RawPattern) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append((*p)[:0], v...)
	case string:
		*p = RawPattern(v)
	default:
		return fmt.Errorf("cannot scan %T into RawPattern", src)
	}
	return nil
}

// ParsePattern decodes the recurrence column of a task row. It returns
// (nil, nil) when no pattern is stored, the pattern when it decodes, and
// ErrInvalidPattern when data is present but corrupt. Rows written by older
// clients may hold the pattern doubly encoded as a JSON string; both shapes
// are accepted.
func ParsePattern(raw []byte) (*RecurrencePattern, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	data := []byte(trimmed)
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		data = []byte(inner)
	}

	var p RecurrencePattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	switch p.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPattern, p.Type)
	}

	if p.Interval < 1 {
		p.Interval = 1
	}
	return &p, nil
}
