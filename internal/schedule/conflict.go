package schedule

import (
	"fmt"
	"sort"
)

// Interval is a half-open [StartMs, EndMs) span within a day.
type Interval struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// NewInterval builds the interval covered by a slot.
func NewInterval(start TimeOfDay, durationSeconds int) Interval {
	return Interval{StartMs: start.Ms(), EndMs: start.Ms() + int64(durationSeconds)*1000}
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", TimeOfDay(iv.StartMs/1000), TimeOfDay(iv.EndMs/1000))
}

// Overlaps reports whether a and b share any instant. Touching intervals
// (a.EndMs == b.StartMs) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.StartMs < b.EndMs && b.StartMs < a.EndMs
}

// ConflictPair links a candidate to an existing item it overlaps.
type ConflictPair struct {
	Candidate Item `json:"candidate"`
	Existing  Item `json:"existing"`
}

// FindConflicts reports every (candidate, existing) pair on the same channel
// and date whose intervals overlap. Pairs are ordered by candidate, then by
// existing start time.
func FindConflicts(candidates, existing []Item) []ConflictPair {
	if len(candidates) == 0 || len(existing) == 0 {
		return nil
	}

	index := make(map[dayKey]*dayIndex)
	for _, it := range existing {
		key := dayKey{it.ChannelID, it.Date}
		idx, ok := index[key]
		if !ok {
			idx = &dayIndex{}
			index[key] = idx
		}
		idx.items = append(idx.items, it)
	}
	for _, idx := range index {
		idx.build()
	}

	var pairs []ConflictPair
	for _, cand := range candidates {
		idx, ok := index[dayKey{cand.ChannelID, cand.Date}]
		if !ok {
			continue
		}
		for _, hit := range idx.overlapping(cand.Interval(), cand.ID) {
			pairs = append(pairs, ConflictPair{Candidate: cand, Existing: hit})
		}
	}
	return pairs
}

// conflictsIn returns the items of one timeline overlapping iv, skipping
// the item with id skipID.
func conflictsIn(timeline []Item, iv Interval, skipID string) []Item {
	idx := &dayIndex{items: append([]Item(nil), timeline...)}
	idx.build()
	return idx.overlapping(iv, skipID)
}

type dayKey struct {
	channel string
	date    Date
}

// dayIndex keeps one day's items sorted by start with a running maximum of
// end times, so a lookup binary-searches both ends of the candidate window.
type dayIndex struct {
	items  []Item
	maxEnd []int64
}

func (d *dayIndex) build() {
	sortByStart(d.items)
	d.maxEnd = make([]int64, len(d.items))
	var running int64
	for i, it := range d.items {
		if end := it.Interval().EndMs; end > running {
			running = end
		}
		d.maxEnd[i] = running
	}
}

func (d *dayIndex) overlapping(iv Interval, skipID string) []Item {
	// Items at or after hi start no earlier than the candidate's end.
	hi := sort.Search(len(d.items), func(i int) bool {
		return d.items[i].Start.Ms() >= iv.EndMs
	})
	// Items before lo all end at or before the candidate's start.
	lo := sort.Search(hi, func(i int) bool {
		return d.maxEnd[i] > iv.StartMs
	})

	var out []Item
	for _, it := range d.items[lo:hi] {
		if skipID != "" && it.ID == skipID {
			continue
		}
		if Overlaps(iv, it.Interval()) {
			out = append(out, it)
		}
	}
	return out
}

func sortByStart(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start < items[j].Start
		}
		if items[i].OrderPosition != items[j].OrderPosition {
			return items[i].OrderPosition < items[j].OrderPosition
		}
		return items[i].ID < items[j].ID
	})
}
