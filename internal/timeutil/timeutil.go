package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrRangeTooLong  = fmt.Errorf("%w: span too long", ErrInvalidRange)
)

// DefaultMaxRangeDays caps custom ranges when no limit is configured.
const DefaultMaxRangeDays = 366

// PeriodKind selects the calendar period used for KPI aggregation.
type PeriodKind string

const (
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

const dateLayout = "2006-01-02"

// ParsePeriodKind accepts "weekly" or "monthly" (case-insensitive).
func ParsePeriodKind(raw string) (PeriodKind, error) {
	switch PeriodKind(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Range is an inclusive [Start, End] span of UTC instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls within [Start, End].
func (r Range) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// Duration returns the range length.
func (r Range) Duration() time.Duration { return r.End.Sub(r.Start) }

// Days returns how many calendar days the inclusive range touches, or 0 when
// End is before Start.
func (r Range) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.Duration()/(24*time.Hour)) + 1
}

// CheckSpan rejects ranges touching more than maxDays days. A non-positive
// maxDays falls back to DefaultMaxRangeDays.
func CheckSpan(r Range, maxDays int) error {
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	if r.Days() > maxDays {
		return fmt.Errorf("%w: %d days exceeds %d", ErrRangeTooLong, r.Days(), maxDays)
	}
	return nil
}

// StartString returns the start formatted as RFC3339 with milliseconds.
func (r Range) StartString() string { return r.Start.UTC().Format("2006-01-02T15:04:05.000Z07:00") }

// EndString returns the end formatted as RFC3339 with milliseconds.
func (r Range) EndString() string { return r.End.UTC().Format("2006-01-02T15:04:05.000Z07:00") }

// EnsureLocation returns UTC when loc is nil.
func EnsureLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// TruncateToDay normalizes the timestamp to midnight in the provided zone.
func TruncateToDay(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns 23:59:59.999 UTC on t's UTC calendar date.
func EndOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// MondayOf returns UTC midnight of the Monday that starts date's ISO week.
// Sunday belongs to the week that began six days earlier.
func MondayOf(date time.Time) time.Time {
	day := TruncateToDay(date, time.UTC)
	weekday := int(day.Weekday())
	offset := 1 - weekday
	if weekday == 0 {
		offset = -6
	}
	return day.AddDate(0, 0, offset)
}

// ResolveRange computes the KPI range for kind relative to now. When either
// custom bound is set the kind is ignored: start is taken as given and end is
// pushed to the end of its day. The end never exceeds now.
func ResolveRange(kind PeriodKind, now time.Time, customStart, customEnd *time.Time) Range {
	now = now.UTC()

	if customStart != nil || customEnd != nil {
		start := now
		if customStart != nil {
			start = customStart.UTC()
		}
		end := now
		if customEnd != nil {
			end = customEnd.UTC()
		}
		return Range{Start: start, End: minTime(EndOfDay(end), now)}
	}

	today := TruncateToDay(now, time.UTC)
	var start, end time.Time
	switch kind {
	case PeriodMonthly:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = EndOfDay(time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC))
	default:
		start = MondayOf(today)
		end = EndOfDay(start.AddDate(0, 0, 6))
	}
	return Range{Start: start, End: minTime(end, now)}
}

// ParseBound parses an optional custom range bound. Empty input yields nil.
// Date-only values resolve to UTC midnight.
func ParseBound(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, ErrInvalidRange
}

// ParseRange parses the period and optional custom bounds of a KPI query and
// resolves them against now.
func ParseRange(period, startRaw, endRaw string, now time.Time) (Range, PeriodKind, error) {
	kind := PeriodWeekly
	if strings.TrimSpace(period) != "" {
		parsed, err := ParsePeriodKind(period)
		if err != nil {
			return Range{}, "", err
		}
		kind = parsed
	}
	start, err := ParseBound(startRaw)
	if err != nil {
		return Range{}, "", err
	}
	end, err := ParseBound(endRaw)
	if err != nil {
		return Range{}, "", err
	}
	return ResolveRange(kind, now, start, end), kind, nil
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
