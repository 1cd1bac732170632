package schedule

import (
	"strings"
)

// Slot says where a new item goes: after the last item, or at a fixed time.
type Slot struct {
	Auto bool
	At   TimeOfDay
}

// Auto places the item immediately after the last item of the timeline.
func Auto() Slot { return Slot{Auto: true} }

// At places the item at a fixed start time.
func At(t TimeOfDay) Slot { return Slot{At: t} }

func (s Slot) String() string {
	if s.Auto {
		return "auto"
	}
	return s.At.String()
}

// MediaRef identifies what to schedule: a catalog asset, or an ad-hoc link
// with a title. DurationMs is an explicit user-entered duration.
type MediaRef struct {
	MediaID    string `json:"media_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ScheduleCommand places one item on a channel's day. Replace is the
// explicit "place anyway" override: conflicting items are removed whole.
type ScheduleCommand struct {
	ChannelID string
	Date      Date
	Media     MediaRef
	Slot      Slot
	Replace   bool
}

func (c ScheduleCommand) validate() error {
	if strings.TrimSpace(c.ChannelID) == "" {
		return &ValidationError{Field: "channel", Message: "channel is required"}
	}
	if !c.Date.Valid() {
		return &ValidationError{Field: "date", Message: "date is required (YYYY-MM-DD)"}
	}
	if c.Media.MediaID == "" && strings.TrimSpace(c.Media.URL) == "" {
		return &ValidationError{Field: "media", Message: "a media id or link is required"}
	}
	if c.Media.MediaID == "" && strings.TrimSpace(c.Media.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required for links not in the catalog"}
	}
	if c.Media.DurationMs < 0 {
		return &ValidationError{Field: "duration", Message: "duration must not be negative"}
	}
	return nil
}

// MoveCommand changes an item's start time on its day.
type MoveCommand struct {
	ItemID string
	Start  TimeOfDay
}

// Direction is a reorder direction.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ReorderCommand swaps an item's position with its neighbour.
type ReorderCommand struct {
	ItemID    string
	Direction Direction
}

// Mode selects what a duplication copies.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeDay    Mode = "day"
	ModeWeek   Mode = "week"
)

// WeekDays is the length of a week duplication.
const WeekDays = 7

// Resolution is the policy applied to conflicts found while duplicating.
// The zero value asks: conflicts are returned and nothing is written.
type Resolution string

const (
	Ask     Resolution = ""
	Replace Resolution = "replace"
	Skip    Resolution = "skip"
)

// ParseResolution accepts "", "ask", "replace" or "skip".
func ParseResolution(value string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ask":
		return Ask, nil
	case "replace":
		return Replace, nil
	case "skip":
		return Skip, nil
	}
	return Ask, &ValidationError{Field: "resolution", Message: "resolution must be replace or skip"}
}

// DuplicateCommand copies one item, one day, or seven days onto other dates.
//
// single: ItemID is copied to TargetDate (default: next day) at TargetStart
// (default: same time). day: every item of ChannelID/Date is copied to
// TargetDate (default: Date+1), shifted so the first item starts at
// TargetStart when set. week: Date..Date+6 are copied onto
// TargetDate..TargetDate+6 (default: Date+7).
type DuplicateCommand struct {
	Mode        Mode
	ItemID      string
	ChannelID   string
	Date        Date
	TargetDate  Date
	TargetStart *TimeOfDay
	Resolution  Resolution
}

func (c DuplicateCommand) validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.ItemID == "" {
			return &ValidationError{Field: "item", Message: "item id is required for single duplication"}
		}
	case ModeDay, ModeWeek:
		if strings.TrimSpace(c.ChannelID) == "" {
			return &ValidationError{Field: "channel", Message: "channel is required"}
		}
		if !c.Date.Valid() {
			return &ValidationError{Field: "date", Message: "source date is required (YYYY-MM-DD)"}
		}
		if c.Mode == ModeWeek && c.TargetStart != nil {
			return &ValidationError{Field: "start", Message: "week duplication keeps each item's time"}
		}
	default:
		return &ValidationError{Field: "mode", Message: "mode must be single, day or week"}
	}
	if c.TargetDate != "" && !c.TargetDate.Valid() {
		return &ValidationError{Field: "target_date", Message: "target date must be YYYY-MM-DD"}
	}
	switch c.Resolution {
	case Ask, Replace, Skip:
	default:
		return &ValidationError{Field: "resolution", Message: "resolution must be replace or skip"}
	}
	return nil
}
