package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// apiTime accepts either a calendar date ("2006-01-02") or an RFC 3339
// timestamp. Calendar dates are resolved in the server time zone.
type apiTime struct {
	time.Time
	dateOnly bool
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	return t.parse(raw)
}

func (t *apiTime) parse(raw string) error {
	if parsed, err := time.Parse(time.DateOnly, raw); err == nil {
		t.Time, t.dateOnly = parsed, true
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", raw)
	}
	t.Time, t.dateOnly = parsed, false
	return nil
}

// in returns the instant, anchoring date-only values to midnight in loc.
func (t *apiTime) in(loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	if !t.dateOnly {
		v := t.Time
		return &v
	}
	v := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return &v
}
