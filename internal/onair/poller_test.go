package onair

import (
	"context"
	"errors"
	"testing"
	"time"

	"playout/internal/catalog"
	"playout/internal/schedule"
	"playout/internal/store/memstore"
)

func newService(t *testing.T) *schedule.Service {
	t.Helper()
	st := memstore.New(
		catalog.Channel{ID: "tv-1", Name: "TV One", Kind: catalog.ChannelTV},
		catalog.Channel{ID: "fm-1", Name: "FM One", Kind: catalog.ChannelRadio},
	)
	lib := st.Media()
	for _, a := range []catalog.MediaAsset{
		{ID: "A", Title: "Opening", Kind: catalog.MediaVideo, DurationMs: 600_000, Active: true},
		{ID: "B", Title: "News", Kind: catalog.MediaVideo, DurationMs: 300_000, Active: true},
	} {
		if _, err := lib.Add(context.Background(), a); err != nil {
			t.Fatalf("add media: %v", err)
		}
	}
	svc, err := schedule.NewService(schedule.Deps{Store: st, Catalog: lib, Channels: st.Channels()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func place(t *testing.T, svc *schedule.Service, ch string, date schedule.Date, media string, at schedule.TimeOfDay) schedule.Item {
	t.Helper()
	p, err := svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: ch,
		Date:      date,
		Media:     schedule.MediaRef{MediaID: media},
		Slot:      schedule.At(at),
	})
	if err != nil {
		t.Fatalf("schedule %s: %v", media, err)
	}
	return p.Item
}

func statusOf(t *testing.T, svc *schedule.Service, id string) schedule.Status {
	t.Helper()
	it, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return it.Status
}

func TestStatusAt(t *testing.T) {
	it := schedule.Item{Start: schedule.Clock(1, 0, 0), DurationSeconds: 60}
	tests := []struct {
		clock schedule.TimeOfDay
		want  schedule.Status
	}{
		{schedule.Clock(0, 59, 59), schedule.StatusScheduled},
		{schedule.Clock(1, 0, 0), schedule.StatusPlaying},
		{schedule.Clock(1, 0, 59), schedule.StatusPlaying},
		{schedule.Clock(1, 1, 0), schedule.StatusDone},
	}
	for _, tt := range tests {
		if got := StatusAt(it, tt.clock); got != tt.want {
			t.Errorf("StatusAt(%s) = %s, want %s", tt.clock, got, tt.want)
		}
	}
}

func TestTickAdvancesStatuses(t *testing.T) {
	svc := newService(t)
	yesterday := place(t, svc, "tv-1", "2024-05-07", "A", schedule.Clock(23, 0, 0))
	a := place(t, svc, "tv-1", "2024-05-08", "A", 0)
	b := place(t, svc, "tv-1", "2024-05-08", "B", schedule.Clock(0, 10, 0))
	later := place(t, svc, "fm-1", "2024-05-08", "B", schedule.Clock(6, 0, 0))

	now := time.Date(2024, 5, 8, 0, 12, 0, 0, time.UTC)
	p := New(svc, Options{Now: func() time.Time { return now }})

	report, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Done != 2 || report.Playing != 1 || report.Scheduled != 0 {
		t.Fatalf("unexpected report: %s", report)
	}
	if got := statusOf(t, svc, yesterday.ID); got != schedule.StatusDone {
		t.Errorf("yesterday's item: %s", got)
	}
	if got := statusOf(t, svc, a.ID); got != schedule.StatusDone {
		t.Errorf("A: %s", got)
	}
	if got := statusOf(t, svc, b.ID); got != schedule.StatusPlaying {
		t.Errorf("B: %s", got)
	}
	if got := statusOf(t, svc, later.ID); got != schedule.StatusScheduled {
		t.Errorf("later: %s", got)
	}

	report, err = p.Tick(context.Background())
	if err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if report != (Report{}) {
		t.Fatalf("expected an idempotent second tick, got %s", report)
	}

	now = time.Date(2024, 5, 8, 0, 15, 0, 0, time.UTC)
	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("third Tick: %v", err)
	}
	if got := statusOf(t, svc, b.ID); got != schedule.StatusDone {
		t.Errorf("B after its end: %s", got)
	}
}

func TestTickUsesLocation(t *testing.T) {
	svc := newService(t)
	a := place(t, svc, "tv-1", "2024-05-08", "A", schedule.Clock(9, 0, 0))

	// 07:05 UTC is 09:05 in a fixed +02:00 zone.
	loc := time.FixedZone("plus2", 2*60*60)
	now := time.Date(2024, 5, 8, 7, 5, 0, 0, time.UTC)
	p := New(svc, Options{Location: loc, Now: func() time.Time { return now }})
	if _, err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := statusOf(t, svc, a.ID); got != schedule.StatusPlaying {
		t.Fatalf("expected playing in local time, got %s", got)
	}
}

type failingService struct {
	Service
}

func (failingService) Channels(context.Context) ([]catalog.Channel, error) {
	return nil, errors.New("directory offline")
}

func TestTickReportsChannelErrors(t *testing.T) {
	p := New(failingService{}, Options{})
	if _, err := p.Tick(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(svc, Options{Interval: time.Millisecond}).Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
