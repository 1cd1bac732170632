package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaySeconds is the length of a channel day. Items never cross it.
const DaySeconds = 24 * 60 * 60

const dateLayout = "2006-01-02"

// Date is a channel-local calendar date in YYYY-MM-DD form.
type Date string

// ParseDate validates and normalizes a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", value)}
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Time returns midnight UTC of the date, or the zero time when invalid.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether the date parses.
func (d Date) Valid() bool {
	return !d.Time().IsZero()
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date(d.Time().AddDate(0, 0, n).Format(dateLayout))
}

func (d Date) String() string { return string(d) }

// TimeOfDay is a second-precision offset from midnight, in [0, DaySeconds].
type TimeOfDay int

// ParseTimeOfDay accepts HH:MM or HH:MM:SS in the range 00:00:00..23:59:59.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &ValidationError{Field: "start", Message: fmt.Sprintf("invalid time %q (want HH:MM:SS)", value)}
	}
	limits := []int{23, 59, 59}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] || len(part) > 2 {
			return 0, &ValidationError{Field: "start", Message: fmt.Sprintf("invalid time %q (want HH:MM:SS)", value)}
		}
		fields[i] = n
	}
	return TimeOfDay(fields[0]*3600 + fields[1]*60 + fields[2]), nil
}

// Clock builds a TimeOfDay from its components.
func Clock(hours, minutes, seconds int) TimeOfDay {
	return TimeOfDay(hours*3600 + minutes*60 + seconds)
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) TimeOfDay {
	return Clock(t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Ms returns the offset in milliseconds.
func (t TimeOfDay) Ms() int64 { return int64(t) * 1000 }

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var secs int
		if err2 := json.Unmarshal(data, &secs); err2 != nil {
			return fmt.Errorf("decode time of day: %w", err)
		}
		*t = TimeOfDay(secs)
		return nil
	}
	if raw == "24:00:00" {
		*t = DaySeconds
		return nil
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Status is the playout state of an item. Transitions are driven by a
// wall-clock poller outside the scheduling core.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusPlaying   Status = "playing"
	StatusDone      Status = "done"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusPlaying, StatusDone:
		return true
	}
	return false
}

// Item is one media placement on a channel's timeline for one date.
type Item struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	MediaID         string    `json:"media_id,omitempty"`
	Title           string    `json:"title"`
	SourceURL       string    `json:"source_url,omitempty"`
	Date            Date      `json:"date"`
	Start           TimeOfDay `json:"start"`
	DurationSeconds int       `json:"duration_seconds"`
	OrderPosition   int       `json:"order_position"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// End is the exclusive end of the item on its day.
func (it Item) End() TimeOfDay {
	return it.Start + TimeOfDay(it.DurationSeconds)
}

// Interval returns the half-open [start, end) interval in milliseconds.
func (it Item) Interval() Interval {
	return NewInterval(it.Start, it.DurationSeconds)
}

// SecondsFromMs rounds a millisecond duration up to whole seconds so a slot
// never truncates its media.
func SecondsFromMs(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}
