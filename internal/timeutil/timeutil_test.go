package timeutil

import (
	"errors"
	"testing"
	"time"
)

func TestMondayOfProperties(t *testing.T) {
	base := time.Date(2023, time.January, 1, 15, 30, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		d := base.AddDate(0, 0, i)
		monday := MondayOf(d)
		if monday.Weekday() != time.Monday {
			t.Fatalf("%s: expected monday, got %s", d, monday.Weekday())
		}
		day := TruncateToDay(d, time.UTC)
		if day.Before(monday) || day.After(monday.AddDate(0, 0, 6)) {
			t.Fatalf("%s: not within week starting %s", d, monday)
		}
		if again := MondayOf(monday); !again.Equal(monday) {
			t.Fatalf("%s: not idempotent, got %s", monday, again)
		}
		if monday.Hour() != 0 || monday.Minute() != 0 || monday.Nanosecond() != 0 {
			t.Fatalf("expected midnight, got %s", monday)
		}
	}
}

func TestMondayOfSundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2023, time.October, 8, 12, 0, 0, 0, time.UTC)
	want := time.Date(2023, time.October, 2, 0, 0, 0, 0, time.UTC)
	if got := MondayOf(sunday); !got.Equal(want) {
		t.Fatalf("unexpected monday %s", got)
	}
}

func TestMondayOfNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// Monday 02:00 local is still Sunday in UTC.
	local := time.Date(2023, time.October, 9, 2, 0, 0, 0, loc)
	want := time.Date(2023, time.October, 2, 0, 0, 0, 0, time.UTC)
	if got := MondayOf(local); !got.Equal(want) {
		t.Fatalf("unexpected monday %s", got)
	}
}

func TestResolveRangeWeeklyClampsToNow(t *testing.T) {
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)
	r := ResolveRange(PeriodWeekly, now, nil, nil)
	if want := time.Date(2023, time.October, 2, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Fatalf("unexpected start %s", r.Start)
	}
	if !r.End.Equal(now) {
		t.Fatalf("unexpected end %s", r.End)
	}

	record := time.Date(2023, time.October, 8, 12, 0, 0, 0, time.UTC)
	if !record.After(r.End) {
		t.Fatalf("future day of the week should fall outside the range")
	}
	if r.Contains(record) {
		t.Fatalf("range should not contain %s", record)
	}
}

func TestResolveRangeWeeklyOnSundayKeepsWholeWeek(t *testing.T) {
	now := time.Date(2023, time.October, 8, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	r := ResolveRange(PeriodWeekly, now, nil, nil)
	if want := time.Date(2023, time.October, 2, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Fatalf("unexpected start %s", r.Start)
	}
	if !r.End.Equal(now) {
		t.Fatalf("unexpected end %s", r.End)
	}
}

func TestResolveRangeInvariants(t *testing.T) {
	base := time.Date(2024, time.February, 1, 7, 45, 12, 0, time.UTC)
	maxSpan := 6*24*time.Hour + 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond
	for i := 0; i < 400; i++ {
		now := base.Add(time.Duration(i) * 17 * time.Hour)
		weekly := ResolveRange(PeriodWeekly, now, nil, nil)
		if weekly.Start.Weekday() != time.Monday {
			t.Fatalf("%s: weekly start not monday: %s", now, weekly.Start)
		}
		if weekly.Duration() > maxSpan {
			t.Fatalf("%s: weekly span too long: %s", now, weekly.Duration())
		}
		monthly := ResolveRange(PeriodMonthly, now, nil, nil)
		for _, r := range []Range{weekly, monthly} {
			if r.End.After(now) {
				t.Fatalf("%s: end %s exceeds now", now, r.End)
			}
			if r.Start.After(r.End) {
				t.Fatalf("%s: start %s after end %s", now, r.Start, r.End)
			}
		}
	}
}

func TestResolveRangeCustomSingleDay(t *testing.T) {
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)
	start, err := ParseBound("2023-10-01")
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	end, err := ParseBound("2023-10-01")
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	r := ResolveRange(PeriodMonthly, now, start, end)
	if want := time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Fatalf("unexpected start %s", r.Start)
	}
	if want := time.Date(2023, time.October, 1, 23, 59, 59, int(999*time.Millisecond), time.UTC); !r.End.Equal(want) {
		t.Fatalf("unexpected end %s", r.End)
	}
	record := time.Date(2023, time.October, 1, 10, 0, 0, 0, time.UTC)
	if record.After(r.End) || !r.Contains(record) {
		t.Fatalf("expected %s within range", record)
	}
}

func TestResolveRangeCustomStartIsNotNormalizedOrClamped(t *testing.T) {
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)

	midday := time.Date(2023, time.October, 2, 9, 30, 0, 0, time.UTC)
	r := ResolveRange(PeriodWeekly, now, &midday, nil)
	if !r.Start.Equal(midday) {
		t.Fatalf("start should be kept as given, got %s", r.Start)
	}
	if !r.End.Equal(now) {
		t.Fatalf("missing end should clamp to now, got %s", r.End)
	}

	future := time.Date(2023, time.October, 20, 0, 0, 0, 0, time.UTC)
	r = ResolveRange(PeriodWeekly, now, &future, nil)
	if !r.Start.Equal(future) {
		t.Fatalf("future start should be kept, got %s", r.Start)
	}
	if !r.Start.After(r.End) {
		t.Fatalf("expected inverted range for a future start")
	}
}

func TestResolveRangeCustomEndOnly(t *testing.T) {
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)
	end := time.Date(2023, time.September, 30, 8, 0, 0, 0, time.UTC)
	r := ResolveRange(PeriodWeekly, now, nil, &end)
	if !r.Start.Equal(now) {
		t.Fatalf("missing start should default to now, got %s", r.Start)
	}
	if want := time.Date(2023, time.September, 30, 23, 59, 59, int(999*time.Millisecond), time.UTC); !r.End.Equal(want) {
		t.Fatalf("unexpected end %s", r.End)
	}
}

func TestResolveRangeMonthly(t *testing.T) {
	now := time.Date(2023, time.October, 17, 9, 0, 0, 0, time.UTC)
	r := ResolveRange(PeriodMonthly, now, nil, nil)
	if want := time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Fatalf("unexpected start %s", r.Start)
	}
	if !r.End.Equal(now) {
		t.Fatalf("unexpected end %s", r.End)
	}

	lastInstant := time.Date(2024, time.February, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	later := lastInstant.Add(time.Hour * 3)
	r = ResolveRange(PeriodMonthly, lastInstant, nil, nil)
	if !r.End.Equal(lastInstant) {
		t.Fatalf("unexpected leap month end %s", r.End)
	}
	r = ResolveRange(PeriodMonthly, later, nil, nil)
	if want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Fatalf("unexpected start %s", r.Start)
	}
}

func TestParseBound(t *testing.T) {
	if b, err := ParseBound("  "); err != nil || b != nil {
		t.Fatalf("expected nil bound, got %v %v", b, err)
	}
	b, err := ParseBound("2023-10-01T10:00:00+02:00")
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if want := time.Date(2023, time.October, 1, 8, 0, 0, 0, time.UTC); !b.Equal(want) || b.Location() != time.UTC {
		t.Fatalf("unexpected bound %s", b)
	}
	for _, raw := range []string{"2023-13-01", "yesterday", "2023/10/01"} {
		if _, err := ParseBound(raw); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%q: expected ErrInvalidRange, got %v", raw, err)
		}
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)
	r, kind, err := ParseRange("", "", "", now)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if kind != PeriodWeekly {
		t.Fatalf("expected weekly default, got %s", kind)
	}
	if r.StartString() != "2023-10-02T00:00:00.000Z" {
		t.Fatalf("unexpected start %s", r.StartString())
	}
	if _, _, err := ParseRange("yearly", "", "", now); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if _, _, err := ParseRange("weekly", "bad", "", now); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, kind, _ := ParseRange(" Monthly ", "", "", now); kind != PeriodMonthly {
		t.Fatalf("expected monthly, got %s", kind)
	}
}

func TestCheckSpan(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	leapYear := Range{Start: start, End: EndOfDay(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))}
	if leapYear.Days() != 366 {
		t.Fatalf("expected 366 days, got %d", leapYear.Days())
	}
	if err := CheckSpan(leapYear, 366); err != nil {
		t.Fatalf("full leap year should pass: %v", err)
	}
	if err := CheckSpan(leapYear, 31); !errors.Is(err, ErrRangeTooLong) || !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrRangeTooLong, got %v", err)
	}

	r, _, err := ParseRange("", "0001-01-01", "2024-01-01", start)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if err := CheckSpan(r, 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected default limit to reject year-one start, got %v", err)
	}
	if err := CheckSpan(Range{Start: start, End: start.Add(-time.Hour)}, 1); err != nil {
		t.Fatalf("reversed range is empty, got %v", err)
	}
}
