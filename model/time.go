package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a schedule clock time in minutes after midnight.
// NoTime marks a stop with no published timestamp.
type TimeOfDay int16

const NoTime TimeOfDay = -1

// ParseTimeOfDay parses "HH:MM". The empty string yields NoTime.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoTime, nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return NoTime, fmt.Errorf("malformed clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return NoTime, fmt.Errorf("malformed clock time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return NoTime, fmt.Errorf("malformed clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return NoTime, fmt.Errorf("clock time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// IsSet reports whether t carries a real timestamp.
func (t TimeOfDay) IsSet() bool { return t >= 0 }

func (t TimeOfDay) String() string {
	if !t.IsSet() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = NoTime
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
