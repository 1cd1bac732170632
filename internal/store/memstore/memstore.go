// Package memstore keeps timelines, media and channels in memory.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"playout/internal/catalog"
	"playout/internal/schedule"
)

// Store implements schedule.Store. Media and Channels expose the catalog
// halves. Update holds a single mutex for its whole duration.
type Store struct {
	mu       sync.Mutex
	items    map[string]schedule.Item
	media    map[string]catalog.MediaAsset
	channels map[string]catalog.Channel
}

// New returns an empty store knowing the given channels.
func New(channels ...catalog.Channel) *Store {
	s := &Store{
		items:    map[string]schedule.Item{},
		media:    map[string]catalog.MediaAsset{},
		channels: map[string]catalog.Channel{},
	}
	for _, ch := range channels {
		s.channels[ch.ID] = ch
	}
	return s
}

func (s *Store) ListDay(ctx context.Context, channelID string, date schedule.Date) ([]schedule.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedule.NewDay(channelID, date, s.dayLocked(channelID, date)).Items(), nil
}

func (s *Store) Get(ctx context.Context, id string) (schedule.Item, error) {
	if err := ctx.Err(); err != nil {
		return schedule.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return schedule.Item{}, fmt.Errorf("item %s: %w", id, schedule.ErrNotFound)
	}
	return it, nil
}

func (s *Store) Update(ctx context.Context, channelID string, date schedule.Date, fn func(*schedule.Day) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	day := schedule.NewDay(channelID, date, s.dayLocked(channelID, date))
	if err := fn(day); err != nil {
		return err
	}
	upserts, deletes := day.Changes()
	for _, id := range deletes {
		delete(s.items, id)
	}
	for _, it := range upserts {
		s.items[it.ID] = it
	}
	return nil
}

func (s *Store) dayLocked(channelID string, date schedule.Date) []schedule.Item {
	var out []schedule.Item
	for _, it := range s.items {
		if it.ChannelID == channelID && it.Date == date {
			out = append(out, it)
		}
	}
	return out
}

// Media exposes the media half of the store as a catalog.Library.
func (s *Store) Media() catalog.Library {
	return mediaLibrary{s}
}

type mediaLibrary struct{ s *Store }

// Add stores a media asset, replacing any asset with the same id.
func (l mediaLibrary) Add(ctx context.Context, asset catalog.MediaAsset) (catalog.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return catalog.MediaAsset{}, err
	}
	if asset.ID == "" {
		return catalog.MediaAsset{}, errors.New("add media: missing id")
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.media[asset.ID] = asset
	return asset, nil
}

func (l mediaLibrary) Get(ctx context.Context, id string) (catalog.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return catalog.MediaAsset{}, err
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	m, ok := l.s.media[id]
	if !ok {
		return catalog.MediaAsset{}, catalog.NotFoundf("media %s", id)
	}
	return m, nil
}

func (l mediaLibrary) List(ctx context.Context) ([]catalog.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := make([]catalog.MediaAsset, 0, len(l.s.media))
	for _, m := range l.s.media {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l mediaLibrary) UpdateDuration(ctx context.Context, id string, ms int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	m, ok := l.s.media[id]
	if !ok {
		return catalog.NotFoundf("media %s", id)
	}
	m.DurationMs = ms
	l.s.media[id] = m
	return nil
}

// SetChannels replaces the known channels.
func (s *Store) SetChannels(channels []catalog.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make(map[string]catalog.Channel, len(channels))
	for _, ch := range channels {
		s.channels[ch.ID] = ch
	}
}

// Channels exposes the channel half of the store as a catalog.Directory.
func (s *Store) Channels() catalog.Directory {
	return channelDirectory{s}
}

type channelDirectory struct{ s *Store }

func (d channelDirectory) List(ctx context.Context) ([]catalog.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	out := make([]catalog.Channel, 0, len(d.s.channels))
	for _, ch := range d.s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d channelDirectory) Get(ctx context.Context, id string) (catalog.Channel, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Channel{}, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	ch, ok := d.s.channels[id]
	if !ok {
		return catalog.Channel{}, catalog.NotFoundf("channel %s", id)
	}
	return ch, nil
}
