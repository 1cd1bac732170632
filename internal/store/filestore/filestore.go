// Package filestore persists timelines and the media library as JSON
// documents inside the project's .playout directory.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"playout/internal/catalog"
	"playout/internal/paths"
	"playout/internal/schedule"
)

const documentVersion = 1

// scheduleDoc is the on-disk form of schedule.json.
type scheduleDoc struct {
	Version int                      `json:"version"`
	Items   map[string]schedule.Item `json:"items"`
}

// catalogDoc is the on-disk form of catalog.json.
type catalogDoc struct {
	Version int                           `json:"version"`
	Media   map[string]catalog.MediaAsset `json:"media"`
}

// Store implements schedule.Store on top of schedule.json. Every operation
// holds an in-process mutex and an advisory lock on the lock file, so
// separate CLI processes never interleave a conflict check and a write.
type Store struct {
	scheduleFile string
	catalogFile  string
	lockFile     string
	channels     catalog.Directory

	mu sync.Mutex
}

// New opens a store rooted at the project's metadata files. Channels come
// from the project config.
func New(pp paths.ProjectPaths, channels []catalog.Channel) *Store {
	return &Store{
		scheduleFile: pp.ScheduleFile,
		catalogFile:  pp.CatalogFile,
		lockFile:     pp.LockFile,
		channels:     catalog.NewStaticDirectory(channels),
	}
}

func (s *Store) ListDay(ctx context.Context, channelID string, date schedule.Date) ([]schedule.Item, error) {
	var out []schedule.Item
	err := s.withLock(ctx, false, func() error {
		doc, err := s.loadSchedule()
		if err != nil {
			return err
		}
		out = schedule.NewDay(channelID, date, dayItems(doc, channelID, date)).Items()
		return nil
	})
	return out, err
}

func (s *Store) Get(ctx context.Context, id string) (schedule.Item, error) {
	var it schedule.Item
	err := s.withLock(ctx, false, func() error {
		doc, err := s.loadSchedule()
		if err != nil {
			return err
		}
		found, ok := doc.Items[id]
		if !ok {
			return fmt.Errorf("item %s: %w", id, schedule.ErrNotFound)
		}
		it = found
		return nil
	})
	return it, err
}

func (s *Store) Update(ctx context.Context, channelID string, date schedule.Date, fn func(*schedule.Day) error) error {
	return s.withLock(ctx, true, func() error {
		doc, err := s.loadSchedule()
		if err != nil {
			return err
		}
		day := schedule.NewDay(channelID, date, dayItems(doc, channelID, date))
		if err := fn(day); err != nil {
			return err
		}
		if !day.Dirty() {
			return nil
		}
		upserts, deletes := day.Changes()
		for _, id := range deletes {
			delete(doc.Items, id)
		}
		for _, it := range upserts {
			doc.Items[it.ID] = it
		}
		return writeJSON(s.scheduleFile, doc)
	})
}

// Media returns the catalog.Library backed by catalog.json.
func (s *Store) Media() catalog.Library {
	return mediaLibrary{s}
}

// Channels returns the configured channel directory.
func (s *Store) Channels() catalog.Directory {
	return s.channels
}

func (s *Store) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(ctx, s.lockFile, exclusive)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	defer unlock()
	return fn()
}

func (s *Store) loadSchedule() (*scheduleDoc, error) {
	doc := &scheduleDoc{}
	if err := readJSON(s.scheduleFile, doc); err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = documentVersion
	}
	if doc.Items == nil {
		doc.Items = map[string]schedule.Item{}
	}
	return doc, nil
}

func (s *Store) loadCatalog() (*catalogDoc, error) {
	doc := &catalogDoc{}
	if err := readJSON(s.catalogFile, doc); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = documentVersion
	}
	if doc.Media == nil {
		doc.Media = map[string]catalog.MediaAsset{}
	}
	return doc, nil
}

func dayItems(doc *scheduleDoc, channelID string, date schedule.Date) []schedule.Item {
	var out []schedule.Item
	for _, it := range doc.Items {
		if it.ChannelID == channelID && it.Date == date {
			out = append(out, it)
		}
	}
	return out
}

// readJSON decodes path into v, leaving v untouched when the file is missing.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure store dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

type mediaLibrary struct{ s *Store }

func (l mediaLibrary) Get(ctx context.Context, id string) (catalog.MediaAsset, error) {
	var asset catalog.MediaAsset
	err := l.s.withLock(ctx, false, func() error {
		doc, err := l.s.loadCatalog()
		if err != nil {
			return err
		}
		found, ok := doc.Media[id]
		if !ok {
			return catalog.NotFoundf("media %s", id)
		}
		asset = found
		return nil
	})
	return asset, err
}

func (l mediaLibrary) List(ctx context.Context) ([]catalog.MediaAsset, error) {
	var out []catalog.MediaAsset
	err := l.s.withLock(ctx, false, func() error {
		doc, err := l.s.loadCatalog()
		if err != nil {
			return err
		}
		for _, m := range doc.Media {
			out = append(out, m)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (l mediaLibrary) Add(ctx context.Context, asset catalog.MediaAsset) (catalog.MediaAsset, error) {
	if asset.ID == "" {
		return catalog.MediaAsset{}, errors.New("add media: missing id")
	}
	err := l.s.withLock(ctx, true, func() error {
		doc, err := l.s.loadCatalog()
		if err != nil {
			return err
		}
		doc.Media[asset.ID] = asset
		return writeJSON(l.s.catalogFile, doc)
	})
	return asset, err
}

func (l mediaLibrary) UpdateDuration(ctx context.Context, id string, ms int64) error {
	return l.s.withLock(ctx, true, func() error {
		doc, err := l.s.loadCatalog()
		if err != nil {
			return err
		}
		m, ok := doc.Media[id]
		if !ok {
			return catalog.NotFoundf("media %s", id)
		}
		m.DurationMs = ms
		doc.Media[id] = m
		return writeJSON(l.s.catalogFile, doc)
	})
}
