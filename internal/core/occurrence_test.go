package core

import (
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		frequency Frequency
		base      time.Time
		want      time.Time
		wantOK    bool
	}{
		{
			name:      "minutely adds one minute",
			frequency: Minutely,
			base:      ts("2023-06-10T08:30:00Z"),
			want:      ts("2023-06-10T08:31:00Z"),
			wantOK:    true,
		},
		{
			name:      "daily adds one calendar day",
			frequency: Daily,
			base:      ts("2023-06-10T08:30:00Z"),
			want:      ts("2023-06-11T08:30:00Z"),
			wantOK:    true,
		},
		{
			name:      "weekly adds seven days",
			frequency: Weekly,
			base:      ts("2023-01-01T00:00:00Z"),
			want:      ts("2023-01-08T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "monthly plain step keeps the day",
			frequency: Monthly,
			base:      ts("2023-03-15T00:00:00Z"),
			want:      ts("2023-04-15T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "monthly clamps Jan 31 to end of February",
			frequency: Monthly,
			base:      ts("2023-01-31T00:00:00Z"),
			want:      ts("2023-02-28T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "monthly clamps to Feb 29 in leap years",
			frequency: Monthly,
			base:      ts("2024-01-31T00:00:00Z"),
			want:      ts("2024-02-29T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "monthly does not overflow across year end",
			frequency: Monthly,
			base:      ts("2023-12-31T10:00:00Z"),
			want:      ts("2024-01-31T10:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "yearly keeps month and day",
			frequency: Yearly,
			base:      ts("2023-07-04T00:00:00Z"),
			want:      ts("2024-07-04T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "yearly clamps Feb 29 to Feb 28 off leap years",
			frequency: Yearly,
			base:      ts("2024-02-29T00:00:00Z"),
			want:      ts("2025-02-28T00:00:00Z"),
			wantOK:    true,
		},
		{
			name:      "unknown frequency does not recur",
			frequency: Frequency("fortnightly"),
			base:      ts("2023-01-01T00:00:00Z"),
			wantOK:    false,
		},
		{
			name:      "empty frequency does not recur",
			frequency: Frequency(""),
			base:      ts("2023-01-01T00:00:00Z"),
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(tt.frequency, tt.base)
			if ok != tt.wantOK {
				t.Fatalf("NextOccurrence() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_Deterministic(t *testing.T) {
	base := ts("2023-01-31T00:00:00Z")
	for _, freq := range []Frequency{Minutely, Daily, Weekly, Monthly, Yearly} {
		first, _ := NextOccurrence(freq, base)
		second, _ := NextOccurrence(freq, base)
		if !first.Equal(second) {
			t.Errorf("NextOccurrence(%s) not deterministic: %v vs %v", freq, first, second)
		}
	}
}

func TestNextOccurrence_MonthlyChain(t *testing.T) {
	// Two monthly steps from Jan 31: the calculator is pure, so the day
	// clamps at February and stays clamped afterwards.
	first, _ := NextOccurrence(Monthly, ts("2023-01-31T00:00:00Z"))
	second, _ := NextOccurrence(Monthly, first)

	if want := ts("2023-02-28T00:00:00Z"); !first.Equal(want) {
		t.Errorf("first step = %v, want %v", first, want)
	}
	if want := ts("2023-03-28T00:00:00Z"); !second.Equal(want) {
		t.Errorf("second step = %v, want %v", second, want)
	}
}

func TestMissedOccurrences(t *testing.T) {
	end := ts("2023-01-20T00:00:00Z")

	tests := []struct {
		name      string
		frequency Frequency
		next      time.Time
		horizon   time.Time
		endDate   *time.Time
		max       int
		want      []time.Time
	}{
		{
			name:      "weekly catch-up over four missed weeks",
			frequency: Weekly,
			next:      ts("2023-01-08T00:00:00Z"),
			horizon:   EndOfDay(ts("2023-01-29T09:00:00Z")),
			max:       100,
			want: []time.Time{
				ts("2023-01-08T00:00:00Z"),
				ts("2023-01-15T00:00:00Z"),
				ts("2023-01-22T00:00:00Z"),
				ts("2023-01-29T00:00:00Z"),
			},
		},
		{
			name:      "end date bounds the expansion",
			frequency: Weekly,
			next:      ts("2023-01-08T00:00:00Z"),
			horizon:   EndOfDay(ts("2023-01-29T09:00:00Z")),
			endDate:   &end,
			max:       100,
			want: []time.Time{
				ts("2023-01-08T00:00:00Z"),
				ts("2023-01-15T00:00:00Z"),
			},
		},
		{
			name:      "next already past horizon yields nothing",
			frequency: Weekly,
			next:      ts("2023-02-05T00:00:00Z"),
			horizon:   EndOfDay(ts("2023-01-29T09:00:00Z")),
			max:       100,
			want:      nil,
		},
		{
			name:      "cap bounds a long-dormant definition",
			frequency: Daily,
			next:      ts("2020-01-01T00:00:00Z"),
			horizon:   EndOfDay(ts("2023-01-29T09:00:00Z")),
			max:       100,
			want:      nil, // length checked separately below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissedOccurrences(tt.frequency, tt.next, tt.horizon, tt.endDate, tt.max)
			if tt.want == nil && tt.max == 100 && tt.frequency == Daily {
				if len(got) != tt.max {
					t.Fatalf("MissedOccurrences() returned %d dates, want cap %d", len(got), tt.max)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("MissedOccurrences() returned %d dates, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("date[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMissedOccurrences_SecondCallContinues(t *testing.T) {
	horizon := EndOfDay(ts("2023-01-29T09:00:00Z"))

	first := MissedOccurrences(Daily, ts("2020-01-01T00:00:00Z"), horizon, nil, 100)
	if len(first) != 100 {
		t.Fatalf("first call returned %d dates, want 100", len(first))
	}

	// Simulate the schedule advancing to just after the last processed date.
	resume, _ := NextOccurrence(Daily, first[len(first)-1])
	second := MissedOccurrences(Daily, resume, horizon, nil, 100)
	if len(second) != 100 {
		t.Fatalf("second call returned %d dates, want 100", len(second))
	}
	if !second[0].Equal(ts("2020-04-10T00:00:00Z")) {
		t.Errorf("second call resumed at %v, want 2020-04-10", second[0])
	}
}

func TestDayHelpers(t *testing.T) {
	at := ts("2023-06-10T17:45:12Z")

	if got := StartOfDay(at); !got.Equal(ts("2023-06-10T00:00:00Z")) {
		t.Errorf("StartOfDay() = %v", got)
	}
	if got := EndOfDay(at); !got.Before(ts("2023-06-11T00:00:00Z")) || !got.After(ts("2023-06-10T23:59:58Z")) {
		t.Errorf("EndOfDay() = %v", got)
	}
	if got := DayKey(at); got != "2023-06-10" {
		t.Errorf("DayKey() = %q, want 2023-06-10", got)
	}
}
