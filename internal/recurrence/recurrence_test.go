// ABOUTME: Tests for RRULE parsing and occurrence expansion.
// ABOUTME: Covers defaults for malformed input, COUNT/UNTIL bounds, and window intersection.
package recurrence

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func window(from, to time.Time) Window {
	return Window{From: from, To: to}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		freq     Frequency
		interval int
		byDay    []time.Weekday
		count    int
		until    bool
	}{
		{"daily", "FREQ=DAILY", Daily, 1, nil, 0, false},
		{"prefix and case", "rrule:freq=monthly;interval=3", Monthly, 3, nil, 0, false},
		{"byday sorted monday first", "FREQ=WEEKLY;BYDAY=SU,MO,WE", Weekly, 1, []time.Weekday{time.Monday, time.Wednesday, time.Sunday}, 0, false},
		{"ordinal byday stripped", "FREQ=MONTHLY;BYDAY=1MO,-1FR", Monthly, 1, []time.Weekday{time.Monday, time.Friday}, 0, false},
		{"count", "FREQ=DAILY;COUNT=5", Daily, 1, nil, 5, false},
		{"until", "FREQ=DAILY;UNTIL=20250110T000000Z", Daily, 1, nil, 0, true},
		{"empty defaults", "", Weekly, 1, nil, 0, false},
		{"unknown freq defaults", "FREQ=HOURLY", Weekly, 1, nil, 0, false},
		{"bad interval defaults", "FREQ=DAILY;INTERVAL=abc", Daily, 1, nil, 0, false},
		{"zero interval defaults", "FREQ=DAILY;INTERVAL=0", Daily, 1, nil, 0, false},
		{"negative count ignored", "FREQ=DAILY;COUNT=-2", Daily, 1, nil, 0, false},
		{"bad until ignored", "FREQ=DAILY;UNTIL=tomorrow", Daily, 1, nil, 0, false},
		{"unknown byday dropped", "FREQ=WEEKLY;BYDAY=XX,TU,TU", Weekly, 1, []time.Weekday{time.Tuesday}, 0, false},
		{"garbage parts", ";;FREQ=DAILY;nonsense;X=Y", Daily, 1, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.input)
			if r.Freq != tt.freq {
				t.Errorf("Freq = %s, want %s", r.Freq, tt.freq)
			}
			if r.Interval != tt.interval {
				t.Errorf("Interval = %d, want %d", r.Interval, tt.interval)
			}
			if r.Count != tt.count {
				t.Errorf("Count = %d, want %d", r.Count, tt.count)
			}
			if (r.Until != nil) != tt.until {
				t.Errorf("Until set = %v, want %v", r.Until != nil, tt.until)
			}
			if len(r.ByDay) != len(tt.byDay) {
				t.Fatalf("ByDay = %v, want %v", r.ByDay, tt.byDay)
			}
			for i := range tt.byDay {
				if r.ByDay[i] != tt.byDay[i] {
					t.Errorf("ByDay[%d] = %v, want %v", i, r.ByDay[i], tt.byDay[i])
				}
			}
		})
	}
}

func TestParseUntilDateOnlyCoversWholeDay(t *testing.T) {
	r := Parse("FREQ=DAILY;UNTIL=20250105")
	if r.Until == nil {
		t.Fatal("expected Until to be set")
	}
	want := time.Date(2025, 1, 5, 23, 59, 59, 999999999, time.UTC)
	if !r.Until.Equal(want) {
		t.Errorf("Until = %v, want %v", r.Until, want)
	}
}

func TestRuleString(t *testing.T) {
	in := "freq=weekly;byday=fr,mo;interval=2;count=4"
	got := Parse(in).String()
	want := "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,FR;COUNT=4"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	again := Parse(got).String()
	if again != got {
		t.Errorf("String() not stable: %q then %q", got, again)
	}
}

func TestExpandDaily(t *testing.T) {
	start := day(2025, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY", window(day(2025, 1, 3), day(2025, 1, 6)), 0)

	want := []time.Time{day(2025, 1, 3), day(2025, 1, 4), day(2025, 1, 5)}
	assertTimes(t, got, want)
}

func TestExpandDailyInterval(t *testing.T) {
	start := day(2025, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY;INTERVAL=3", window(day(2025, 1, 1), day(2025, 1, 11)), 0)

	want := []time.Time{day(2025, 1, 1), day(2025, 1, 4), day(2025, 1, 7), day(2025, 1, 10)}
	assertTimes(t, got, want)
}

func TestExpandDailyByDayFilters(t *testing.T) {
	// 2025-01-06 is a Monday.
	start := day(2025, 1, 6)
	got := ExpandString(start, 0, "FREQ=DAILY;BYDAY=MO,WE,FR", window(day(2025, 1, 6), day(2025, 1, 13)), 0)

	want := []time.Time{day(2025, 1, 6), day(2025, 1, 8), day(2025, 1, 10)}
	assertTimes(t, got, want)
}

func TestExpandWeeklyDefaultsToStartWeekday(t *testing.T) {
	// Wednesday start.
	start := day(2025, 1, 8)
	got := ExpandString(start, 0, "FREQ=WEEKLY", window(day(2025, 1, 1), day(2025, 2, 1)), 0)

	want := []time.Time{day(2025, 1, 8), day(2025, 1, 15), day(2025, 1, 22), day(2025, 1, 29)}
	assertTimes(t, got, want)
}

func TestExpandWeeklyByDayAndInterval(t *testing.T) {
	// Wednesday 2025-01-08; Monday of that week (01-06) precedes start and is skipped.
	start := day(2025, 1, 8)
	got := ExpandString(start, 0, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,FR", window(day(2025, 1, 1), day(2025, 2, 1)), 0)

	want := []time.Time{day(2025, 1, 10), day(2025, 1, 20), day(2025, 1, 24)}
	assertTimes(t, got, want)
}

func TestExpandRuleLiteralUnsortedByDay(t *testing.T) {
	// 2024-01-01 is a Monday.
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r := Rule{Freq: Weekly, Interval: 1, ByDay: []time.Weekday{time.Friday, time.Monday, time.Friday}}

	got := Expand(start, 0, r, window(day(2024, 1, 8), day(2024, 1, 10)), 0)
	assertTimes(t, got, []time.Time{day(2024, 1, 8)})

	r.Count = 2
	got = Expand(start, 0, r, window(day(2024, 1, 1), day(2024, 2, 1)), 0)
	assertTimes(t, got, []time.Time{day(2024, 1, 1), day(2024, 1, 5)})

	if r.ByDay[0] != time.Friday {
		t.Errorf("caller's ByDay reordered: %v", r.ByDay)
	}
}

func TestExpandCountFromSeriesStart(t *testing.T) {
	start := day(2025, 1, 1)
	// Five occurrences: Jan 1-5. Window only sees the last two.
	got := ExpandString(start, 0, "FREQ=DAILY;COUNT=5", window(day(2025, 1, 4), day(2025, 2, 1)), 0)

	want := []time.Time{day(2025, 1, 4), day(2025, 1, 5)}
	assertTimes(t, got, want)
}

func TestExpandCountExhaustedBeforeWindow(t *testing.T) {
	start := day(2025, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY;COUNT=3", window(day(2025, 3, 1), day(2025, 4, 1)), 0)
	if len(got) != 0 {
		t.Errorf("expected no occurrences, got %v", got)
	}
}

func TestExpandUntilInclusive(t *testing.T) {
	start := day(2025, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY;UNTIL=20250103T090000Z", window(day(2025, 1, 1), day(2025, 2, 1)), 0)

	want := []time.Time{day(2025, 1, 1), day(2025, 1, 2), day(2025, 1, 3)}
	assertTimes(t, got, want)
}

func TestExpandMonthlySkipsShortMonths(t *testing.T) {
	start := day(2025, 1, 31)
	got := ExpandString(start, 0, "FREQ=MONTHLY", window(day(2025, 1, 1), day(2025, 6, 1)), 0)

	want := []time.Time{day(2025, 1, 31), day(2025, 3, 31), day(2025, 5, 31)}
	assertTimes(t, got, want)
}

func TestExpandMonthlyByDay(t *testing.T) {
	// Every Friday in each month, starting 2025-02-01.
	start := day(2025, 2, 1)
	got := ExpandString(start, 0, "FREQ=MONTHLY;BYDAY=FR", window(day(2025, 2, 1), day(2025, 3, 1)), 0)

	want := []time.Time{day(2025, 2, 7), day(2025, 2, 14), day(2025, 2, 21), day(2025, 2, 28)}
	assertTimes(t, got, want)
}

func TestExpandYearlyLeapDay(t *testing.T) {
	start := day(2024, 2, 29)
	got := ExpandString(start, 0, "FREQ=YEARLY", window(day(2024, 1, 1), day(2033, 1, 1)), 0)

	want := []time.Time{day(2024, 2, 29), day(2028, 2, 29), day(2032, 2, 29)}
	assertTimes(t, got, want)
}

func TestExpandMaxCap(t *testing.T) {
	start := day(2025, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY", window(day(2025, 1, 1), day(2026, 1, 1)), 10)
	if len(got) != 10 {
		t.Fatalf("expected 10 occurrences, got %d", len(got))
	}
	if !got[9].Equal(day(2025, 1, 10)) {
		t.Errorf("last occurrence = %v, want 2025-01-10", got[9])
	}
}

func TestExpandDefaultMax(t *testing.T) {
	start := day(2020, 1, 1)
	got := ExpandString(start, 0, "FREQ=DAILY", window(day(2020, 1, 1), day(2030, 1, 1)), 0)
	if len(got) != DefaultMaxOccurrences {
		t.Errorf("expected %d occurrences, got %d", DefaultMaxOccurrences, len(got))
	}
}

func TestExpandDurationIntersectsWindowStart(t *testing.T) {
	// 23:00 two-hour blocks: the one starting the evening before overlaps the window.
	start := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)
	w := window(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC))
	got := ExpandString(start, 2*time.Hour, "FREQ=DAILY", w, 0)

	want := []time.Time{
		time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 23, 0, 0, 0, time.UTC),
	}
	assertTimes(t, got, want)
}

func TestExpandFarFutureWindowWithoutCount(t *testing.T) {
	start := day(2000, 1, 1)
	got := ExpandString(start, time.Hour, "FREQ=WEEKLY;BYDAY=SA", window(day(2040, 1, 1), day(2040, 1, 15)), 0)

	// 2040-01-07 and 2040-01-14 are Saturdays.
	want := []time.Time{day(2040, 1, 7), day(2040, 1, 14)}
	assertTimes(t, got, want)
}

func TestExpandEmptyWindow(t *testing.T) {
	start := day(2025, 1, 1)
	if got := ExpandString(start, 0, "FREQ=DAILY", window(day(2025, 1, 5), day(2025, 1, 5)), 0); got != nil {
		t.Errorf("expected nil for empty window, got %v", got)
	}
	if got := ExpandString(start, 0, "FREQ=DAILY", window(day(2025, 1, 5), day(2025, 1, 1)), 0); got != nil {
		t.Errorf("expected nil for inverted window, got %v", got)
	}
}

func TestExpandKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	start := time.Date(2025, 1, 1, 7, 30, 0, 0, loc)
	got := ExpandString(start, 0, "FREQ=DAILY;COUNT=2", window(start, start.AddDate(0, 0, 10)), 0)

	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[1].Location() != loc || got[1].Hour() != 7 || got[1].Minute() != 30 {
		t.Errorf("occurrence lost clock time or location: %v", got[1])
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
