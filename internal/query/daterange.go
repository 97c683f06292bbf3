package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days. The zero value means no range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to their calendar day and rejects inverted ranges.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: day(start), End: day(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: date range end %s precedes start %s",
			ErrInvalidState, r.End.Format(dateLayout), r.Start.Format(dateLayout))
	}
	return r, nil
}

// ParseDateRange parses the "YYYY-MM-DD:YYYY-MM-DD" wire form. An empty string yields no range.
func ParseDateRange(s string) (DateRange, error) {
	if s == "" {
		return DateRange{}, nil
	}
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return DateRange{}, fmt.Errorf("%w: date range %q must be start:end", ErrInvalidState, s)
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: date range start: %v", ErrInvalidState, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: date range end: %v", ErrInvalidState, err)
	}
	return NewDateRange(start, end)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// String returns the wire form, or "" when there is no range.
func (r DateRange) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Start.Format(dateLayout) + ":" + r.End.Format(dateLayout)
}

// Equal compares ranges by calendar day.
func (r DateRange) Equal(o DateRange) bool {
	return r.String() == o.String()
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(dateLayout),
		End:   r.End.Format(dateLayout),
	})
}

func (r *DateRange) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = DateRange{}
		return nil
	}
	var raw dateRangeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Start == "" && raw.End == "" {
		*r = DateRange{}
		return nil
	}
	parsed, err := ParseDateRange(raw.Start + ":" + raw.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
