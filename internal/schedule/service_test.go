package schedule_test

import (
	"context"
	"errors"
	"testing"

	"playout/internal/catalog"
	"playout/internal/events"
	"playout/internal/schedule"
	"playout/internal/store/memstore"
)

const day1 = schedule.Date("2024-05-01")

type fixture struct {
	svc    *schedule.Service
	store  *memstore.Store
	events *events.Memory
}

func newFixture(t *testing.T, wrap ...func(schedule.Store) schedule.Store) fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New(
		catalog.Channel{ID: "tv-1", Name: "TV One", Kind: catalog.ChannelTV},
		catalog.Channel{ID: "fm-1", Name: "FM One", Kind: catalog.ChannelRadio},
	)
	lib := st.Media()
	assets := []catalog.MediaAsset{
		{ID: "A", Title: "Opening", Kind: catalog.MediaVideo, DurationMs: 600_000, Active: true},
		{ID: "B", Title: "News", Kind: catalog.MediaVideo, DurationMs: 300_000, Active: true},
		{ID: "C", Title: "Spot", Kind: catalog.MediaAd, DurationMs: 120_000, Active: true},
		{ID: "J", Title: "Jingle", Kind: catalog.MediaJingle, DurationMs: 4_500, Active: true},
		{ID: "old", Title: "Retired", Kind: catalog.MediaVideo, DurationMs: 60_000},
	}
	for _, a := range assets {
		if _, err := lib.Add(ctx, a); err != nil {
			t.Fatalf("add media: %v", err)
		}
	}
	var store schedule.Store = st
	for _, w := range wrap {
		store = w(store)
	}
	mem := &events.Memory{}
	svc, err := schedule.NewService(schedule.Deps{
		Store:    store,
		Catalog:  lib,
		Channels: st.Channels(),
		Events:   mem,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return fixture{svc: svc, store: st, events: mem}
}

func (f fixture) place(t *testing.T, date schedule.Date, media string, slot schedule.Slot) schedule.Item {
	t.Helper()
	p, err := f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1",
		Date:      date,
		Media:     schedule.MediaRef{MediaID: media},
		Slot:      slot,
	})
	if err != nil {
		t.Fatalf("schedule %s on %s: %v", media, date, err)
	}
	return p.Item
}

func (f fixture) day(t *testing.T, date schedule.Date) []schedule.Item {
	t.Helper()
	items, err := f.svc.ListDay(context.Background(), "tv-1", date)
	if err != nil {
		t.Fatalf("list %s: %v", date, err)
	}
	return items
}

func assertNoOverlaps(t *testing.T, items []schedule.Item) {
	t.Helper()
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if schedule.Overlaps(items[i].Interval(), items[j].Interval()) {
				t.Fatalf("items %s and %s overlap", items[i].ID, items[j].ID)
			}
		}
	}
}

func TestScheduleAutoPlacesBackToBack(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())

	if a.Start != 0 || a.OrderPosition != 1 || a.DurationSeconds != 600 {
		t.Fatalf("unexpected first item %+v", a)
	}
	if b.Start != schedule.Clock(0, 10, 0) || b.OrderPosition != 2 {
		t.Fatalf("unexpected second item %+v", b)
	}
	if b.End() != schedule.Clock(0, 15, 0) {
		t.Fatalf("expected B to end at 00:15:00, got %s", b.End())
	}
	if b.Status != schedule.StatusScheduled || b.Title != "News" {
		t.Fatalf("unexpected status/title %+v", b)
	}
	got := f.events.Types()
	if len(got) != 2 || got[0] != events.ItemScheduled {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestScheduleRoundsDurationUp(t *testing.T) {
	f := newFixture(t)
	j := f.place(t, day1, "J", schedule.Auto())
	if j.DurationSeconds != 5 {
		t.Fatalf("expected 4.5s to round up to 5s, got %d", j.DurationSeconds)
	}
}

func TestScheduleConflictCarriesEveryOverlap(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())
	ctx := context.Background()

	_, err := f.svc.Schedule(ctx, schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media: schedule.MediaRef{MediaID: "C"},
		Slot:  schedule.At(schedule.Clock(0, 5, 0)),
	})
	var conflict *schedule.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != a.ID {
		t.Fatalf("expected conflict with A, got %+v", conflict.Conflicts)
	}

	_, err = f.svc.Schedule(ctx, schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media: schedule.MediaRef{MediaID: "C"},
		Slot:  schedule.At(schedule.Clock(0, 9, 0)),
	})
	if !errors.As(err, &conflict) || len(conflict.Conflicts) != 2 {
		t.Fatalf("expected conflicts with A and B, got %v", err)
	}
	if conflict.Conflicts[1].ID != b.ID {
		t.Fatalf("expected B second, got %+v", conflict.Conflicts)
	}
	if items := f.day(t, day1); len(items) != 2 {
		t.Fatalf("rejected placement wrote items: %+v", items)
	}
}

func TestScheduleTouchingIntervalsDoNotConflict(t *testing.T) {
	f := newFixture(t)
	f.place(t, day1, "A", schedule.Auto())
	c := f.place(t, day1, "C", schedule.At(schedule.Clock(0, 10, 0)))
	if c.Start != schedule.Clock(0, 10, 0) {
		t.Fatalf("unexpected start %s", c.Start)
	}
	f.place(t, day1, "J", schedule.At(c.End()))
	assertNoOverlaps(t, f.day(t, day1))
}

func TestScheduleReplaceRemovesWholeItems(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, day1, "A", schedule.Auto())
	f.place(t, day1, "B", schedule.Auto())

	p, err := f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media:   schedule.MediaRef{MediaID: "C"},
		Slot:    schedule.At(schedule.Clock(0, 5, 0)),
		Replace: true,
	})
	if err != nil {
		t.Fatalf("schedule with replace: %v", err)
	}
	if len(p.Removed) != 1 || p.Removed[0].ID != a.ID {
		t.Fatalf("expected A removed, got %+v", p.Removed)
	}
	items := f.day(t, day1)
	if len(items) != 2 {
		t.Fatalf("expected C and B, got %+v", items)
	}
	if items[0].ID != p.Item.ID || items[0].OrderPosition != 1 || items[1].OrderPosition != 2 {
		t.Fatalf("positions not renumbered: %+v", items)
	}
	assertNoOverlaps(t, items)
}

func TestScheduleRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  schedule.ScheduleCommand
		want string
	}{
		{"unknown channel", schedule.ScheduleCommand{ChannelID: "tv-9", Date: day1, Media: schedule.MediaRef{MediaID: "A"}, Slot: schedule.Auto()}, "notfound"},
		{"unknown media", schedule.ScheduleCommand{ChannelID: "tv-1", Date: day1, Media: schedule.MediaRef{MediaID: "Z"}, Slot: schedule.Auto()}, "notfound"},
		{"inactive media", schedule.ScheduleCommand{ChannelID: "tv-1", Date: day1, Media: schedule.MediaRef{MediaID: "old"}, Slot: schedule.Auto()}, "validation"},
		{"missing date", schedule.ScheduleCommand{ChannelID: "tv-1", Media: schedule.MediaRef{MediaID: "A"}, Slot: schedule.Auto()}, "validation"},
		{"link without title", schedule.ScheduleCommand{ChannelID: "tv-1", Date: day1, Media: schedule.MediaRef{URL: "https://example.com/a.mp4"}, Slot: schedule.Auto()}, "validation"},
		{"crosses midnight", schedule.ScheduleCommand{ChannelID: "tv-1", Date: day1, Media: schedule.MediaRef{MediaID: "A"}, Slot: schedule.At(schedule.Clock(23, 59, 0))}, "validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Schedule(ctx, tc.cmd)
			var nf *schedule.NotFoundError
			var ve *schedule.ValidationError
			switch tc.want {
			case "notfound":
				if !errors.As(err, &nf) {
					t.Fatalf("expected NotFoundError, got %v", err)
				}
			case "validation":
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestScheduleAutoOnFullDay(t *testing.T) {
	f := newFixture(t)
	f.place(t, day1, "A", schedule.At(schedule.Clock(23, 50, 0)))

	_, err := f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media: schedule.MediaRef{MediaID: "C"},
		Slot:  schedule.Auto(),
	})
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for a day ending at midnight, got %v", err)
	}
}

func TestScheduleAdHocLinkFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media: schedule.MediaRef{URL: "https://example.com/live.m3u8", Title: "Live feed"},
		Slot:  schedule.Auto(),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if p.Warning == nil {
		t.Fatalf("expected a resolution warning")
	}
	if p.Item.DurationSeconds != 180 || p.Item.MediaID != "" || p.Item.Title != "Live feed" {
		t.Fatalf("unexpected item %+v", p.Item)
	}

	p, err = f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: day1,
		Media: schedule.MediaRef{URL: "https://example.com/promo.mp4", Title: "Promo", DurationMs: 30_000},
		Slot:  schedule.Auto(),
	})
	if err != nil {
		t.Fatalf("schedule manual: %v", err)
	}
	if p.Warning != nil || p.Item.DurationSeconds != 30 || p.Item.Start != schedule.Clock(0, 3, 0) {
		t.Fatalf("unexpected manual placement %+v", p)
	}
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())

	if _, err := f.svc.Move(ctx, schedule.MoveCommand{ItemID: b.ID, Start: schedule.Clock(0, 5, 0)}); err == nil {
		t.Fatalf("expected conflict moving B onto A")
	} else {
		var conflict *schedule.ConflictError
		if !errors.As(err, &conflict) || conflict.Conflicts[0].ID != a.ID {
			t.Fatalf("expected ConflictError with A, got %v", err)
		}
	}

	same, err := f.svc.Move(ctx, schedule.MoveCommand{ItemID: b.ID, Start: b.Start})
	if err != nil || same.Start != b.Start {
		t.Fatalf("same-start move should be a no-op: %+v %v", same, err)
	}

	// Moving A after B flips the order and the positions follow time.
	moved, err := f.svc.Move(ctx, schedule.MoveCommand{ItemID: a.ID, Start: schedule.Clock(1, 0, 0)})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.OrderPosition != 2 {
		t.Fatalf("expected A at position 2, got %d", moved.OrderPosition)
	}
	items := f.day(t, day1)
	if items[0].ID != b.ID || items[0].OrderPosition != 1 {
		t.Fatalf("unexpected order %+v", items)
	}

	var nf *schedule.NotFoundError
	if _, err := f.svc.Move(ctx, schedule.MoveCommand{ItemID: "nope", Start: 0}); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	var ve *schedule.ValidationError
	if _, err := f.svc.Move(ctx, schedule.MoveCommand{ItemID: a.ID, Start: schedule.Clock(23, 55, 0)}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for a cross-midnight move, got %v", err)
	}
}

func TestReorderSwapsPositionsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())

	edge, err := f.svc.Reorder(ctx, schedule.ReorderCommand{ItemID: a.ID, Direction: schedule.Up})
	if err != nil || edge.OrderPosition != 1 {
		t.Fatalf("reorder at edge should be a no-op: %+v %v", edge, err)
	}

	got, err := f.svc.Reorder(ctx, schedule.ReorderCommand{ItemID: b.ID, Direction: schedule.Up})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got.OrderPosition != 1 || got.Start != b.Start {
		t.Fatalf("expected B at position 1 with unchanged start, got %+v", got)
	}
	reloaded, _ := f.svc.Get(ctx, a.ID)
	if reloaded.OrderPosition != 2 || reloaded.Start != a.Start {
		t.Fatalf("expected A at position 2, got %+v", reloaded)
	}

	// The next time-changing commit re-derives positions from time.
	c := f.place(t, day1, "C", schedule.Auto())
	items := f.day(t, day1)
	want := []string{a.ID, b.ID, c.ID}
	for i, it := range items {
		if it.ID != want[i] || it.OrderPosition != i+1 {
			t.Fatalf("position %d: got %s/%d", i+1, it.ID, it.OrderPosition)
		}
	}

	var ve *schedule.ValidationError
	if _, err := f.svc.Reorder(ctx, schedule.ReorderCommand{ItemID: a.ID, Direction: "sideways"}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRemoveRenumbersFromStartTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())
	c := f.place(t, day1, "C", schedule.Auto())

	// C now sits ahead of B in presentation order.
	if _, err := f.svc.Reorder(ctx, schedule.ReorderCommand{ItemID: c.ID, Direction: schedule.Up}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := f.svc.Remove(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	items := f.day(t, day1)
	want := []string{b.ID, c.ID}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %+v", len(want), items)
	}
	for i, it := range items {
		if it.ID != want[i] || it.OrderPosition != i+1 {
			t.Fatalf("position %d: got %s/%d, want %s/%d", i+1, it.ID, it.OrderPosition, want[i], i+1)
		}
	}

	var nf *schedule.NotFoundError
	if err := f.svc.Remove(ctx, a.ID); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.place(t, day1, "A", schedule.Auto())

	got, err := f.svc.SetStatus(ctx, a.ID, schedule.StatusPlaying)
	if err != nil || got.Status != schedule.StatusPlaying {
		t.Fatalf("set status: %+v %v", got, err)
	}
	var ve *schedule.ValidationError
	if _, err := f.svc.SetStatus(ctx, a.ID, "paused"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	types := f.events.Types()
	if types[len(types)-1] != events.ItemStatus {
		t.Fatalf("expected status event, got %v", types)
	}
}
