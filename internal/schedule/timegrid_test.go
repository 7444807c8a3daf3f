package schedule_test

import (
	"testing"
	"time"

	"github.com/slotwise/schedulr/internal/schedule"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	if err != nil {
		t.Fatalf("bad test time %q: %v", hhmm, err)
	}
	return parsed
}

func iv(t *testing.T, start, end string) schedule.Interval {
	t.Helper()
	made, err := schedule.NewInterval(at(t, start), at(t, end))
	if err != nil {
		t.Fatalf("bad test interval %s-%s: %v", start, end, err)
	}
	return made
}

func TestNewIntervalRejectsInverted(t *testing.T) {
	if _, err := schedule.NewInterval(at(t, "10:00"), at(t, "09:00")); err == nil {
		t.Fatal("Expected error for inverted interval")
	}
	if _, err := schedule.NewInterval(at(t, "10:00"), at(t, "10:00")); err == nil {
		t.Fatal("Expected error for zero-length interval")
	}
}

func TestNewIntervalTruncatesSubSecond(t *testing.T) {
	start := at(t, "09:00").Add(300 * time.Millisecond)
	end := at(t, "10:00").Add(700 * time.Millisecond)
	made, err := schedule.NewInterval(start, end)
	if err != nil {
		t.Fatal(err)
	}
	if made.Start.Nanosecond() != 0 || made.End.Nanosecond() != 0 {
		t.Fatalf("Expected second precision, got %v - %v", made.Start, made.End)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	a := iv(t, "09:00", "10:00")
	b := iv(t, "10:00", "11:00")
	if a.Overlaps(b) {
		t.Fatal("Back-to-back intervals must not overlap")
	}
	c := iv(t, "09:30", "10:30")
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Fatal("Expected overlap for intersecting intervals")
	}
}

func TestContainsAndCovers(t *testing.T) {
	a := iv(t, "09:00", "10:00")
	if !a.Contains(at(t, "09:00")) {
		t.Fatal("Start instant must be contained")
	}
	if a.Contains(at(t, "10:00")) {
		t.Fatal("End instant must not be contained")
	}
	if !a.Covers(iv(t, "09:15", "09:45")) {
		t.Fatal("Expected inner interval to be covered")
	}
	if a.Covers(iv(t, "09:30", "10:30")) {
		t.Fatal("Interval spilling past the end must not be covered")
	}
}

func TestGenerateCandidates(t *testing.T) {
	got := schedule.GenerateCandidates(at(t, "09:00"), at(t, "11:00"), 30*time.Minute)
	if len(got) != 4 {
		t.Fatalf("Expected 4 candidates, got %d", len(got))
	}
	if !got[0].Equal(at(t, "09:00")) || !got[3].Equal(at(t, "10:30")) {
		t.Fatalf("Unexpected candidates: %v", got)
	}

	if schedule.GenerateCandidates(at(t, "11:00"), at(t, "09:00"), 30*time.Minute) != nil {
		t.Fatal("Expected nil for inverted range")
	}
	if schedule.GenerateCandidates(at(t, "09:00"), at(t, "11:00"), 0) != nil {
		t.Fatal("Expected nil for zero step")
	}
}

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []schedule.Interval
		want []schedule.Interval
	}{
		{
			name: "overlapping out of order",
			in:   []schedule.Interval{iv(t, "10:00", "12:00"), iv(t, "09:00", "10:30")},
			want: []schedule.Interval{iv(t, "09:00", "12:00")},
		},
		{
			name: "adjacent coalesce",
			in:   []schedule.Interval{iv(t, "09:00", "10:00"), iv(t, "10:00", "11:00")},
			want: []schedule.Interval{iv(t, "09:00", "11:00")},
		},
		{
			name: "disjoint stay apart",
			in:   []schedule.Interval{iv(t, "09:00", "10:00"), iv(t, "14:00", "15:00")},
			want: []schedule.Interval{iv(t, "09:00", "10:00"), iv(t, "14:00", "15:00")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schedule.MergeIntervals(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d intervals, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if !got[i].Start.Equal(tt.want[i].Start) || !got[i].End.Equal(tt.want[i].End) {
					t.Fatalf("Interval %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSubtractBusy(t *testing.T) {
	free := []schedule.Interval{iv(t, "09:00", "17:00")}

	t.Run("middle busy splits", func(t *testing.T) {
		got, err := schedule.SubtractBusy(free, []schedule.Interval{iv(t, "12:00", "13:00")})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 intervals, got %d: %v", len(got), got)
		}
		if !got[0].End.Equal(at(t, "12:00")) || !got[1].Start.Equal(at(t, "13:00")) {
			t.Fatalf("Unexpected split: %v", got)
		}
	})

	t.Run("edge busy truncates", func(t *testing.T) {
		got, err := schedule.SubtractBusy(free, []schedule.Interval{iv(t, "08:00", "10:00")})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || !got[0].Start.Equal(at(t, "10:00")) || !got[0].End.Equal(at(t, "17:00")) {
			t.Fatalf("Expected 10:00-17:00, got %v", got)
		}
	})

	t.Run("covering busy removes", func(t *testing.T) {
		got, err := schedule.SubtractBusy(free, []schedule.Interval{iv(t, "08:00", "18:00")})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Fatalf("Expected empty result, got %v", got)
		}
	})

	t.Run("invalid input errors", func(t *testing.T) {
		bad := schedule.Interval{Start: at(t, "12:00"), End: at(t, "11:00")}
		if _, err := schedule.SubtractBusy(free, []schedule.Interval{bad}); err == nil {
			t.Fatal("Expected error for inverted busy interval")
		}
	})
}
