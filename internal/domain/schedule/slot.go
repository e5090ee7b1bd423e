package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Weekday is a day of the week, numbered Monday=1 through Sunday=7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseWeekday accepts full English day names or their three-letter
// abbreviations, case-insensitively. Numeric tokens are rejected.
func ParseWeekday(token string) (Weekday, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if len(t) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, token)
	}
	for d := Monday; d <= Sunday; d++ {
		name := strings.ToLower(weekdayNames[d])
		if t == name || t == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, token)
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(d))
	}
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWeekday, string(data))
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time in seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay panics on out-of-range components; use ParseTimeOfDay for input.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		panic(fmt.Sprintf("schedule: invalid time of day %02d:%02d:%02d", hour, minute, second))
	}
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{23, 59, 59}
	var v [3]int
	for i, p := range parts {
		if len(p) != 2 || !isDigit(p[0]) || !isDigit(p[1]) {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		v[i] = n
	}
	return NewTimeOfDay(v[0], v[1], v[2]), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool { return t >= 0 && t < secondsPerDay }

// String renders HH:MM, or HH:MM:SS when the seconds are non-zero.
func (t TimeOfDay) String() string {
	if t.Second() == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
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

// TimeSlot is one recurring weekly window [Start, End) on Weekday.
type TimeSlot struct {
	Weekday Weekday   `json:"weekday"`
	Start   TimeOfDay `json:"start_time"`
	End     TimeOfDay `json:"end_time"`
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Weekday, s.Start, s.End)
}

// IsTimeRangeValid reports whether start is strictly before end. Zero-length
// and inverted ranges are invalid.
func IsTimeRangeValid(start, end TimeOfDay) bool {
	return start.Valid() && end.Valid() && start < end
}

// Overlaps is the half-open interval intersection test used for every
// conflict decision. Slots on different weekdays never overlap, and slots
// that only touch at a boundary do not overlap.
func Overlaps(candidate, existing TimeSlot) bool {
	if candidate.Weekday != existing.Weekday {
		return false
	}
	return candidate.Start < existing.End && existing.Start < candidate.End
}
