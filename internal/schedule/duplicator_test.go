package schedule_test

import (
	"context"
	"errors"
	"testing"

	"playout/internal/schedule"
)

func TestDuplicateDayKeepsTimesWithNewIDs(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, day1, "A", schedule.Auto())
	b := f.place(t, day1, "B", schedule.Auto())
	if _, err := f.svc.SetStatus(context.Background(), a.ID, schedule.StatusDone); err != nil {
		t.Fatalf("set status: %v", err)
	}

	res, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeDay, ChannelID: "tv-1", Date: day1,
	})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if res.Pending || len(res.Inserted) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	next := f.day(t, "2024-05-02")
	if len(next) != 2 {
		t.Fatalf("expected 2 items on 2024-05-02, got %d", len(next))
	}
	for i, src := range []schedule.Item{a, b} {
		cp := next[i]
		if cp.ID == src.ID || cp.MediaID != src.MediaID || cp.Start != src.Start || cp.DurationSeconds != src.DurationSeconds {
			t.Fatalf("copy %d does not mirror source: %+v vs %+v", i, cp, src)
		}
		if cp.Status != schedule.StatusScheduled || cp.OrderPosition != i+1 {
			t.Fatalf("copy %d has status %s position %d", i, cp.Status, cp.OrderPosition)
		}
	}
}

func TestDuplicateDayShiftsToTargetStart(t *testing.T) {
	f := newFixture(t)
	f.place(t, day1, "A", schedule.Auto())
	f.place(t, day1, "C", schedule.At(schedule.Clock(0, 30, 0)))

	start := schedule.Clock(8, 0, 0)
	_, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeDay, ChannelID: "tv-1", Date: day1, TargetDate: "2024-05-05", TargetStart: &start,
	})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	items := f.day(t, "2024-05-05")
	if items[0].Start != schedule.Clock(8, 0, 0) || items[1].Start != schedule.Clock(8, 30, 0) {
		t.Fatalf("spacing not preserved: %s %s", items[0].Start, items[1].Start)
	}

	late := schedule.Clock(23, 45, 0)
	_, err = f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeDay, ChannelID: "tv-1", Date: day1, TargetDate: "2024-05-06", TargetStart: &late,
	})
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError when shifting past midnight, got %v", err)
	}
	if items := f.day(t, "2024-05-06"); len(items) != 0 {
		t.Fatalf("rejected duplication wrote %d items", len(items))
	}
}

func TestDuplicateSingle(t *testing.T) {
	f := newFixture(t)
	b := f.place(t, day1, "B", schedule.At(schedule.Clock(12, 0, 0)))

	res, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{Mode: schedule.ModeSingle, ItemID: b.ID})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if len(res.Inserted) != 1 || res.Inserted[0].Date != "2024-05-02" || res.Inserted[0].Start != b.Start {
		t.Fatalf("unexpected copy %+v", res.Inserted)
	}

	at := schedule.Clock(6, 0, 0)
	res, err = f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeSingle, ItemID: b.ID, TargetDate: day1, TargetStart: &at,
	})
	if err != nil {
		t.Fatalf("duplicate same day: %v", err)
	}
	if res.Inserted[0].Start != at || res.Inserted[0].OrderPosition != 1 {
		t.Fatalf("unexpected copy %+v", res.Inserted[0])
	}

	var nf *schedule.NotFoundError
	if _, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{Mode: schedule.ModeSingle, ItemID: "gone"}); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

// weekFixture puts A and B on 05-01, C on 05-03, and a blocker on 05-10
// overlapping the week copy of C.
func weekFixture(t *testing.T, wrap ...func(schedule.Store) schedule.Store) (fixture, schedule.Item) {
	t.Helper()
	f := newFixture(t, wrap...)
	f.place(t, day1, "A", schedule.Auto())
	f.place(t, day1, "B", schedule.Auto())
	f.place(t, "2024-05-03", "C", schedule.Auto())
	p, err := f.svc.Schedule(context.Background(), schedule.ScheduleCommand{
		ChannelID: "tv-1", Date: "2024-05-10",
		Media: schedule.MediaRef{URL: "https://example.com/blocker.mp4", Title: "Blocker", DurationMs: 60_000},
		Slot:  schedule.At(schedule.Clock(0, 1, 0)),
	})
	if err != nil {
		t.Fatalf("schedule blocker: %v", err)
	}
	return f, p.Item
}

func TestDuplicateWeekAskIsPendingAndWritesNothing(t *testing.T) {
	f, blocker := weekFixture(t)

	res, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1,
	})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if !res.Pending || len(res.Conflicts) != 1 {
		t.Fatalf("expected one pending conflict, got %+v", res)
	}
	if res.Conflicts[0].Existing.ID != blocker.ID || res.Conflicts[0].Candidate.Title != "Spot" {
		t.Fatalf("unexpected conflict pair %+v", res.Conflicts[0])
	}
	if items := f.day(t, "2024-05-08"); len(items) != 0 {
		t.Fatalf("pending duplication wrote %d items on 2024-05-08", len(items))
	}
}

func TestDuplicateWeekSkipIsIdempotent(t *testing.T) {
	f, blocker := weekFixture(t)
	cmd := schedule.DuplicateCommand{Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1, Resolution: schedule.Skip}

	res, err := f.svc.Duplicate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if len(res.Dates) != schedule.WeekDays {
		t.Fatalf("expected %d date outcomes, got %d", schedule.WeekDays, len(res.Dates))
	}
	if len(res.Inserted) != 2 || len(res.Skipped) != 1 || len(res.Removed) != 0 {
		t.Fatalf("unexpected counts inserted=%d skipped=%d removed=%d", len(res.Inserted), len(res.Skipped), len(res.Removed))
	}
	if got := f.day(t, "2024-05-10"); len(got) != 1 || got[0].ID != blocker.ID {
		t.Fatalf("blocker should be untouched: %+v", got)
	}

	again, err := f.svc.Duplicate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second duplicate: %v", err)
	}
	if len(again.Inserted) != 0 || len(again.Skipped) != 3 {
		t.Fatalf("second run should skip everything: inserted=%d skipped=%d", len(again.Inserted), len(again.Skipped))
	}
	if got := f.day(t, "2024-05-08"); len(got) != 2 {
		t.Fatalf("expected 2 items on 2024-05-08, got %d", len(got))
	}
}

func TestDuplicateWeekReplace(t *testing.T) {
	f, blocker := weekFixture(t)

	res, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1, Resolution: schedule.Replace,
	})
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if len(res.Removed) != 1 || res.Removed[0].ID != blocker.ID {
		t.Fatalf("expected blocker removed, got %+v", res.Removed)
	}
	got := f.day(t, "2024-05-10")
	if len(got) != 1 || got[0].Title != "Spot" || got[0].Start != 0 {
		t.Fatalf("expected the copy of C on 2024-05-10, got %+v", got)
	}
	assertNoOverlaps(t, got)
}

type failingStore struct {
	schedule.Store
	failOn schedule.Date
}

func (s failingStore) Update(ctx context.Context, channelID string, date schedule.Date, fn func(*schedule.Day) error) error {
	if date == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.Update(ctx, channelID, date, fn)
}

func TestDuplicateWeekPartialFailure(t *testing.T) {
	f, blocker := weekFixture(t, func(st schedule.Store) schedule.Store {
		return failingStore{Store: st, failOn: "2024-05-08"}
	})

	res, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{
		Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1, Resolution: schedule.Skip,
	})
	var partial *schedule.PartialBatchFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialBatchFailure, got %v", err)
	}
	failed := partial.Failed()
	if len(failed) != 1 || failed[0].Date != "2024-05-08" || failed[0].Error == "" {
		t.Fatalf("unexpected failures %+v", failed)
	}
	if len(partial.Succeeded()) != schedule.WeekDays-1 {
		t.Fatalf("expected %d committed dates", schedule.WeekDays-1)
	}
	if len(res.Inserted) != 0 || len(res.Skipped) != 1 {
		t.Fatalf("unexpected counts inserted=%d skipped=%d", len(res.Inserted), len(res.Skipped))
	}
	if got := f.day(t, "2024-05-10"); len(got) != 1 || got[0].ID != blocker.ID {
		t.Fatalf("committed date changed: %+v", got)
	}
}

func TestDuplicateCancelMarksRemainingDates(t *testing.T) {
	f, _ := weekFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started []schedule.Date
	res, err := f.svc.Duplicate(ctx, schedule.DuplicateCommand{
		Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1, Resolution: schedule.Skip,
	}, schedule.WithProgress(schedule.Progress{
		DateStarted:  func(d schedule.Date) { started = append(started, d) },
		DateFinished: func(schedule.DateOutcome) { cancel() },
	}))
	var partial *schedule.PartialBatchFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialBatchFailure, got %v", err)
	}
	if len(started) != schedule.WeekDays {
		t.Fatalf("progress saw %d dates", len(started))
	}
	if !res.Dates[0].OK() || len(partial.Failed()) != schedule.WeekDays-1 {
		t.Fatalf("expected only the first date to commit: %+v", res.Dates)
	}
	for _, o := range partial.Failed() {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("date %s failed with %v", o.Date, o.Err)
		}
	}
}

func TestDuplicateValidation(t *testing.T) {
	f := newFixture(t)
	start := schedule.Clock(1, 0, 0)
	cases := []schedule.DuplicateCommand{
		{Mode: "month", ChannelID: "tv-1", Date: day1},
		{Mode: schedule.ModeSingle},
		{Mode: schedule.ModeWeek, ChannelID: "tv-1", Date: day1, TargetStart: &start},
		{Mode: schedule.ModeDay, ChannelID: "tv-1"},
		{Mode: schedule.ModeDay, ChannelID: "tv-1", Date: day1, Resolution: "merge"},
	}
	for _, cmd := range cases {
		var ve *schedule.ValidationError
		if _, err := f.svc.Duplicate(context.Background(), cmd); !errors.As(err, &ve) {
			t.Fatalf("%+v: expected ValidationError, got %v", cmd, err)
		}
	}
	var nf *schedule.NotFoundError
	if _, err := f.svc.Duplicate(context.Background(), schedule.DuplicateCommand{Mode: schedule.ModeDay, ChannelID: "tv-9", Date: day1}); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
