package schedule

import (
	"fmt"
	"math/rand"
	"testing"
)

func item(id string, start TimeOfDay, secs int) Item {
	return Item{ID: id, ChannelID: "tv-1", Date: "2024-05-01", Start: start, DurationSeconds: secs}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := NewInterval(0, 600)
	b := NewInterval(600, 300)
	if Overlaps(a, b) || Overlaps(b, a) {
		t.Fatalf("touching intervals must not overlap")
	}
	if !Overlaps(a, NewInterval(599, 2)) {
		t.Fatalf("expected overlap one second before the end")
	}
}

func TestFindConflictsOrdersPairs(t *testing.T) {
	existing := []Item{
		item("b", Clock(0, 10, 0), 300),
		item("a", 0, 600),
		{ID: "other-channel", ChannelID: "fm-1", Date: "2024-05-01", Start: 0, DurationSeconds: 3600},
		{ID: "other-date", ChannelID: "tv-1", Date: "2024-05-02", Start: 0, DurationSeconds: 3600},
	}
	candidates := []Item{
		item("x", Clock(0, 9, 0), 120),
		item("y", Clock(0, 15, 0), 60),
		item("z", Clock(0, 5, 0), 60),
	}
	pairs := FindConflicts(candidates, existing)
	got := make([]string, len(pairs))
	for i, p := range pairs {
		got[i] = p.Candidate.ID + "/" + p.Existing.ID
	}
	want := []string{"x/a", "x/b", "z/a"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}
}

func TestFindConflictsMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var existing []Item
	for i := 0; i < 300; i++ {
		existing = append(existing, item(fmt.Sprintf("e%d", i), TimeOfDay(rng.Intn(DaySeconds-4000)), 1+rng.Intn(3600)))
	}
	var candidates []Item
	for i := 0; i < 100; i++ {
		candidates = append(candidates, item(fmt.Sprintf("c%d", i), TimeOfDay(rng.Intn(DaySeconds-4000)), 1+rng.Intn(3600)))
	}

	brute := 0
	for _, c := range candidates {
		for _, e := range existing {
			if Overlaps(c.Interval(), e.Interval()) {
				brute++
			}
		}
	}
	if got := len(FindConflicts(candidates, existing)); got != brute {
		t.Fatalf("indexed scan found %d pairs, brute force %d", got, brute)
	}
}
