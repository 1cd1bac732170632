package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Store persists timelines. Update is the only write path: it gives fn
// exclusive access to one (channel, date) timeline and commits the changes
// fn buffers on the Day atomically when fn returns nil.
type Store interface {
	ListDay(ctx context.Context, channelID string, date Date) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Update(ctx context.Context, channelID string, date Date, fn func(*Day) error) error
}

// Day is a working copy of one timeline inside Store.Update.
type Day struct {
	ChannelID string
	Date      Date

	items    map[string]Item
	original map[string]bool
	upserts  map[string]bool
	deletes  map[string]bool
}

// NewDay wraps the committed items of a timeline. Stores call this.
func NewDay(channelID string, date Date, items []Item) *Day {
	d := &Day{
		ChannelID: channelID,
		Date:      date,
		items:     make(map[string]Item, len(items)),
		original:  make(map[string]bool, len(items)),
		upserts:   map[string]bool{},
		deletes:   map[string]bool{},
	}
	for _, it := range items {
		d.items[it.ID] = it
		d.original[it.ID] = true
	}
	return d
}

// Items returns the current items ordered by start, then position.
func (d *Day) Items() []Item {
	out := make([]Item, 0, len(d.items))
	for _, it := range d.items {
		out = append(out, it)
	}
	sortByStart(out)
	return out
}

// ItemsByPosition returns the current items in presentation order.
func (d *Day) ItemsByPosition() []Item {
	out := d.Items()
	SortByPosition(out)
	return out
}

// Get returns the current version of an item.
func (d *Day) Get(id string) (Item, bool) {
	it, ok := d.items[id]
	return it, ok
}

// Upsert inserts or replaces an item on this day.
func (d *Day) Upsert(it Item) error {
	if it.ID == "" {
		return errors.New("upsert item: missing id")
	}
	if it.ChannelID != d.ChannelID || it.Date != d.Date {
		return fmt.Errorf("upsert item %s: belongs to %s/%s, not %s/%s", it.ID, it.ChannelID, it.Date, d.ChannelID, d.Date)
	}
	d.items[it.ID] = it
	d.upserts[it.ID] = true
	delete(d.deletes, it.ID)
	return nil
}

// Delete removes an item, reporting whether it was present.
func (d *Day) Delete(id string) bool {
	if _, ok := d.items[id]; !ok {
		return false
	}
	delete(d.items, id)
	delete(d.upserts, id)
	if d.original[id] {
		d.deletes[id] = true
	}
	return true
}

// Renumber re-derives order positions from ascending start time.
func (d *Day) Renumber() {
	d.assign(d.Items())
}

func (d *Day) assign(ordered []Item) {
	for i, it := range ordered {
		if it.OrderPosition == i+1 {
			continue
		}
		it.OrderPosition = i + 1
		d.items[it.ID] = it
		d.upserts[it.ID] = true
	}
}

// Changes returns the buffered writes: items to upsert (ordered by start)
// and ids to delete.
func (d *Day) Changes() (upserts []Item, deletes []string) {
	for _, it := range d.Items() {
		if d.upserts[it.ID] {
			upserts = append(upserts, it)
		}
	}
	for id := range d.deletes {
		deletes = append(deletes, id)
	}
	sort.Strings(deletes)
	return upserts, deletes
}

// Dirty reports whether the day has pending changes.
func (d *Day) Dirty() bool {
	return len(d.upserts) > 0 || len(d.deletes) > 0
}
