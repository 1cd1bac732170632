package schedule

import (
	"fmt"
	"sort"
)

// NextAvailableStart returns where an auto-placed item goes: midnight for an
// empty timeline, otherwise the end of the chronologically last item,
// wrapped to the day.
func NextAvailableStart(timeline []Item) TimeOfDay {
	last, ok := lastItem(timeline)
	if !ok {
		return 0
	}
	return last.End() % DaySeconds
}

// ValidatePlacement checks a slot against a timeline. It returns a
// *ValidationError for slots that cannot exist and a *ConflictError carrying
// every overlapping item otherwise.
func ValidatePlacement(timeline []Item, start TimeOfDay, durationSeconds int) error {
	if err := validateSlot(start, durationSeconds); err != nil {
		return err
	}
	iv := NewInterval(start, durationSeconds)
	if hits := conflictsIn(timeline, iv, ""); len(hits) > 0 {
		return &ConflictError{Candidate: iv, Conflicts: hits}
	}
	return nil
}

func validateSlot(start TimeOfDay, durationSeconds int) error {
	if durationSeconds <= 0 {
		return &ValidationError{Field: "duration", Message: "duration must be greater than zero"}
	}
	if start < 0 || start >= DaySeconds {
		return &ValidationError{Field: "start", Message: fmt.Sprintf("start %s is outside the day", start)}
	}
	if int(start)+durationSeconds > DaySeconds {
		return &ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("slot starting %s for %ds would cross midnight", start, durationSeconds),
		}
	}
	return nil
}

func lastItem(timeline []Item) (Item, bool) {
	if len(timeline) == 0 {
		return Item{}, false
	}
	last := timeline[0]
	for _, it := range timeline[1:] {
		if it.Start > last.Start || (it.Start == last.Start && it.OrderPosition > last.OrderPosition) {
			last = it
		}
	}
	return last, true
}

// RenumberDay returns the items sorted by start time with order positions
// re-derived as 1..n.
func RenumberDay(items []Item) []Item {
	out := append([]Item(nil), items...)
	sortByStart(out)
	for i := range out {
		out[i].OrderPosition = i + 1
	}
	return out
}

// SortByPosition orders items by their presentation position.
func SortByPosition(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OrderPosition != items[j].OrderPosition {
			return items[i].OrderPosition < items[j].OrderPosition
		}
		return items[i].Start < items[j].Start
	})
}
