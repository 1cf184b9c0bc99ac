package holidays

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	dayLayout = "2006-01-02"
	icsDate   = "20060102"
	// maxSpanDays bounds multi-day events so a malformed DTEND cannot explode the calendar.
	maxSpanDays = 31
)

// Calendar is a set of non-working dates keyed by calendar day.
type Calendar struct {
	days map[string]string
}

// Empty returns a calendar without holidays.
func Empty() *Calendar {
	return &Calendar{days: map[string]string{}}
}

// LoadFile parses the ICS file at path. An empty path yields an empty calendar.
func LoadFile(path string) (*Calendar, error) {
	if strings.TrimSpace(path) == "" {
		return Empty(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holidays file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads VEVENTs from an ICS stream. All-day events cover [DTSTART, DTEND);
// timed events mark the date of their start.
func Parse(r io.Reader) (*Calendar, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	out := Empty()
	for _, ev := range cal.Events() {
		if err := out.addEvent(ev); err != nil {
			slog.Default().Warn("skipping holiday event", slog.Any("error", err))
		}
	}
	return out, nil
}

func (c *Calendar) addEvent(ev *ical.VEvent) error {
	summary := ""
	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	startProp := ev.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return errors.New("missing DTSTART")
	}

	if !strings.Contains(startProp.Value, "T") {
		start, err := time.Parse(icsDate, strings.TrimSpace(startProp.Value))
		if err != nil {
			return fmt.Errorf("parse DTSTART: %w", err)
		}
		end := start.AddDate(0, 0, 1)
		if endProp := ev.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && !strings.Contains(endProp.Value, "T") {
			if parsed, err := time.Parse(icsDate, strings.TrimSpace(endProp.Value)); err == nil && parsed.After(start) {
				end = parsed
			}
		}
		for d, n := start, 0; d.Before(end) && n < maxSpanDays; d, n = d.AddDate(0, 0, 1), n+1 {
			c.days[d.Format(dayLayout)] = summary
		}
		return nil
	}

	start, err := ev.GetStartAt()
	if err != nil {
		return fmt.Errorf("parse DTSTART: %w", err)
	}
	c.days[start.Format(dayLayout)] = summary
	return nil
}

// Add marks date as a holiday.
func (c *Calendar) Add(date time.Time, name string) {
	c.days[date.Format(dayLayout)] = name
}

// IsHoliday reports whether the calendar day of t (in t's location) is a holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.days[t.Format(dayLayout)]
	return ok
}

// Name returns the holiday summary for t's calendar day.
func (c *Calendar) Name(t time.Time) string {
	if c == nil {
		return ""
	}
	return c.days[t.Format(dayLayout)]
}

// Dates lists every holiday date in ascending order.
func (c *Calendar) Dates() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.days))
	for d := range c.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsWorkingDay reports whether t falls Monday to Friday and is not a holiday.
func IsWorkingDay(t time.Time, cal *Calendar) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !cal.IsHoliday(t)
}

// WorkingDays counts working days in the inclusive calendar span [start, end],
// evaluated in start's location. It returns 0 when end precedes start.
func WorkingDays(start, end time.Time, cal *Calendar) int {
	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	end = end.In(loc)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)

	count := 0
	for !day.After(last) {
		if IsWorkingDay(day, cal) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}
