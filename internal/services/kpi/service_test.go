package kpi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/holidays"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

type stubRecords struct {
	records []attendance.Record
	gotUser uuid.UUID
	gotRng  timeutil.Range
	calls   int
}

func (s *stubRecords) ListAll(_ context.Context, userID uuid.UUID, r timeutil.Range, _ int) ([]attendance.Record, error) {
	s.calls++
	s.gotUser = userID
	s.gotRng = r
	return s.records, nil
}

type stubHeadcount struct {
	n     int64
	calls int
}

func (s *stubHeadcount) CountActiveUsers(context.Context) (int64, error) {
	s.calls++
	return s.n, nil
}

func record(user uuid.UUID, name string, checkIn time.Time, worked time.Duration, status db.AttendanceStatus) attendance.Record {
	rec := attendance.Record{ID: uuid.New(), UserID: user, UserName: name, CheckInAt: checkIn, Status: status}
	if worked > 0 {
		out := checkIn.Add(worked)
		rec.CheckOutAt = &out
	}
	return rec
}

func TestDashboardWeeklyAggregates(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	now := time.Date(2023, time.October, 4, 12, 0, 0, 0, time.UTC)
	src := &stubRecords{records: []attendance.Record{
		record(alice, "Alice", time.Date(2023, 10, 2, 8, 55, 0, 0, time.UTC), 8*time.Hour, db.AttendanceStatusPresent),
		record(alice, "Alice", time.Date(2023, 10, 3, 9, 20, 0, 0, time.UTC), 7*time.Hour, db.AttendanceStatusLate),
		record(bob, "Bob", time.Date(2023, 10, 2, 8, 0, 0, 0, time.UTC), 9*time.Hour, db.AttendanceStatusPresent),
		record(bob, "Bob", time.Date(2023, 10, 4, 8, 0, 0, 0, time.UTC), 0, db.AttendanceStatusPresent),
		// Sunday of the same week lies past the clamped end and is dropped.
		record(bob, "Bob", time.Date(2023, 10, 8, 12, 0, 0, 0, time.UTC), time.Hour, db.AttendanceStatusPresent),
	}}
	heads := &stubHeadcount{n: 2}
	svc := NewService(src, heads, holidays.Empty(), time.UTC)

	dash, err := svc.Dashboard(context.Background(), DashboardParams{Now: now})
	require.NoError(t, err)
	require.Equal(t, timeutil.PeriodWeekly, dash.Period)
	require.False(t, dash.Custom)
	require.Equal(t, time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC), dash.Start)
	require.Equal(t, now, dash.End)
	require.Equal(t, now, src.gotRng.End)

	totals := dash.Totals
	require.Equal(t, 3, totals.Present)
	require.Equal(t, 1, totals.Late)
	require.Equal(t, 4, totals.Records)
	require.EqualValues(t, 2, totals.Employees)
	require.Equal(t, 2, totals.ActiveEmployees)
	require.Equal(t, 3, totals.WorkingDays)
	// 4 attended / (2 employees * 3 days)
	require.Equal(t, "66.67", totals.AttendanceRate.String())
	require.Equal(t, "75", totals.PunctualityRate.String())
	require.Equal(t, "8", totals.AvgWorkedHours.String())

	require.Len(t, dash.Daily, 3)
	require.Equal(t, DailyPoint{Date: "2023-10-02", Present: 2}, dash.Daily[0])
	require.Equal(t, DailyPoint{Date: "2023-10-03", Late: 1}, dash.Daily[1])
	require.Equal(t, 1, dash.Daily[2].Present)

	require.Len(t, dash.Employees, 2)
	require.Equal(t, "Alice", dash.Employees[0].Name)
	require.Equal(t, "15", dash.Employees[0].WorkedHours.String())
	require.Equal(t, "50", dash.Employees[0].PunctualityRate.String())
	require.Equal(t, "66.67", dash.Employees[1].AttendanceRate.String())
}

func TestDashboardEmptyHasZeroRates(t *testing.T) {
	svc := NewService(&stubRecords{}, &stubHeadcount{}, nil, time.UTC)
	dash, err := svc.Dashboard(context.Background(), DashboardParams{Period: "monthly", Now: time.Date(2023, 10, 17, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.True(t, dash.Totals.AttendanceRate.IsZero())
	require.True(t, dash.Totals.PunctualityRate.IsZero())
	require.True(t, dash.Totals.AvgWorkedHours.IsZero())
	require.Len(t, dash.Daily, 17)
	require.Empty(t, dash.Employees)
}

func TestDashboardSingleUserSkipsHeadcount(t *testing.T) {
	user := uuid.New()
	src := &stubRecords{}
	heads := &stubHeadcount{n: 50}
	svc := NewService(src, heads, nil, time.UTC)
	dash, err := svc.Dashboard(context.Background(), DashboardParams{UserID: user, Now: time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.EqualValues(t, 1, dash.Totals.Employees)
	require.Equal(t, 0, heads.calls)
	require.Equal(t, user, src.gotUser)
}

func TestDashboardCustomRangeWithHoliday(t *testing.T) {
	cal := holidays.Empty()
	cal.Add(time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC), "Founders Day")
	user := uuid.New()
	src := &stubRecords{records: []attendance.Record{
		record(user, "Ann", time.Date(2023, 10, 3, 10, 0, 0, 0, time.UTC), 0, db.AttendanceStatusLeave),
	}}
	svc := NewService(src, &stubHeadcount{n: 1}, cal, time.UTC)

	dash, err := svc.Dashboard(context.Background(), DashboardParams{
		Start: "2023-10-02",
		End:   "2023-10-03",
		Now:   time.Date(2023, 10, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, dash.Custom)
	require.Equal(t, 1, dash.Totals.WorkingDays)
	require.Equal(t, 1, dash.Totals.Leave)
	require.Equal(t, "Founders Day", dash.Daily[0].Holiday)
	require.Equal(t, 1, dash.Daily[1].Leave)
	require.True(t, dash.Totals.AttendanceRate.IsZero())
}

func TestDashboardFutureCustomStart(t *testing.T) {
	svc := NewService(&stubRecords{}, &stubHeadcount{n: 3}, nil, time.UTC)
	dash, err := svc.Dashboard(context.Background(), DashboardParams{
		Start: "2023-11-01",
		Now:   time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, dash.Start.After(dash.End))
	require.Empty(t, dash.Daily)
	require.Zero(t, dash.Totals.WorkingDays)
}

func TestDashboardInvalidInput(t *testing.T) {
	svc := NewService(&stubRecords{}, &stubHeadcount{}, nil, time.UTC)
	_, err := svc.Dashboard(context.Background(), DashboardParams{Period: "yearly"})
	require.True(t, errors.Is(err, timeutil.ErrInvalidPeriod))
	_, err = svc.Dashboard(context.Background(), DashboardParams{Start: "not-a-date"})
	require.True(t, errors.Is(err, timeutil.ErrInvalidRange))

	var nilSvc *Service
	_, err = nilSvc.Dashboard(context.Background(), DashboardParams{})
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestDashboardRejectsOversizedRange(t *testing.T) {
	src := &stubRecords{}
	now := time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)
	svc := NewService(src, &stubHeadcount{n: 1}, nil, time.UTC)

	_, err := svc.Dashboard(context.Background(), DashboardParams{Start: "0001-01-01", Now: now})
	require.ErrorIs(t, err, timeutil.ErrInvalidRange)
	require.ErrorIs(t, err, timeutil.ErrRangeTooLong)
	require.Zero(t, src.calls)

	narrow := NewService(src, &stubHeadcount{n: 1}, nil, time.UTC, WithMaxRangeDays(7))
	_, err = narrow.Dashboard(context.Background(), DashboardParams{Start: "2023-09-01", End: "2023-09-08", Now: now})
	require.ErrorIs(t, err, timeutil.ErrRangeTooLong)

	dash, err := narrow.Dashboard(context.Background(), DashboardParams{Start: "2023-09-01", End: "2023-09-07", Now: now})
	require.NoError(t, err)
	require.Len(t, dash.Daily, 7)
	require.Equal(t, 1, src.calls)
}
