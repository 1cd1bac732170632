package memstore

import (
	"context"
	"errors"
	"testing"

	"playout/internal/catalog"
	"playout/internal/schedule"
)

func TestUpdateCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New(catalog.Channel{ID: "tv-1", Name: "TV One", Kind: catalog.ChannelTV})
	date := schedule.Date("2024-05-01")

	item := schedule.Item{ID: "a", ChannelID: "tv-1", Date: date, Start: 0, DurationSeconds: 600, OrderPosition: 1}
	boom := errors.New("boom")
	err := s.Update(ctx, "tv-1", date, func(d *schedule.Day) error {
		if err := d.Upsert(item); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if items, _ := s.ListDay(ctx, "tv-1", date); len(items) != 0 {
		t.Fatalf("failed update leaked %d items", len(items))
	}

	if err := s.Update(ctx, "tv-1", date, func(d *schedule.Day) error { return d.Upsert(item) }); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DurationSeconds != 600 {
		t.Fatalf("unexpected item %+v", got)
	}

	if err := s.Update(ctx, "tv-1", date, func(d *schedule.Day) error {
		d.Delete("a")
		return nil
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLibraryAndChannels(t *testing.T) {
	ctx := context.Background()
	s := New(catalog.Channel{ID: "fm-1", Name: "FM", Kind: catalog.ChannelRadio})
	lib := s.Media()

	if _, err := lib.Add(ctx, catalog.MediaAsset{ID: "m1", Title: "Jingle", Kind: catalog.MediaJingle, Active: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := lib.UpdateDuration(ctx, "m1", 12_000); err != nil {
		t.Fatalf("update duration: %v", err)
	}
	if _, err := s.Get(ctx, "m1"); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("item lookup should not find media, got %v", err)
	}
	list, _ := lib.List(ctx)
	if len(list) != 1 || list[0].DurationMs != 12_000 {
		t.Fatalf("unexpected media %+v", list)
	}
	if err := lib.UpdateDuration(ctx, "missing", 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}

	dir := s.Channels()
	if _, err := dir.Get(ctx, "fm-1"); err != nil {
		t.Fatalf("channel: %v", err)
	}
	if _, err := dir.Get(ctx, "tv-9"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}
