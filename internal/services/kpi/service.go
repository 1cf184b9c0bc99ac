package kpi

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/holidays"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

var ErrServiceUnavailable = errors.New("kpi service not initialized")

// maxRecords bounds how many rows a single dashboard aggregates.
const maxRecords = 100_000

// RecordSource loads attendance records whose check-in falls in a range.
type RecordSource interface {
	ListAll(ctx context.Context, userID uuid.UUID, r timeutil.Range, max int) ([]attendance.Record, error)
}

// Headcount reports how many employees are expected to attend.
type Headcount interface {
	CountActiveUsers(ctx context.Context) (int64, error)
}

// Service builds KPI dashboards.
type Service struct {
	records      RecordSource
	users        Headcount
	calendar     *holidays.Calendar
	loc          *time.Location
	maxRangeDays int
}

// Option customizes the service.
type Option func(*Service)

// WithMaxRangeDays caps how many days a dashboard range may span.
func WithMaxRangeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxRangeDays = days
		}
	}
}

func NewService(records RecordSource, users Headcount, calendar *holidays.Calendar, loc *time.Location, opts ...Option) *Service {
	if calendar == nil {
		calendar = holidays.Empty()
	}
	svc := &Service{
		records:      records,
		users:        users,
		calendar:     calendar,
		loc:          timeutil.EnsureLocation(loc),
		maxRangeDays: timeutil.DefaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// DashboardParams selects the dashboard period. Start and End are raw custom
// bounds; when either is set Period is ignored. A nil UserID covers everyone.
type DashboardParams struct {
	Period string
	Start  string
	End    string
	UserID uuid.UUID
	Now    time.Time
}

type Totals struct {
	Present         int             `json:"present"`
	Late            int             `json:"late"`
	Absent          int             `json:"absent"`
	Leave           int             `json:"leave"`
	Records         int             `json:"records"`
	Employees       int64           `json:"employees"`
	ActiveEmployees int             `json:"active_employees"`
	WorkingDays     int             `json:"working_days"`
	AvgWorkedHours  decimal.Decimal `json:"avg_worked_hours"`
	AttendanceRate  decimal.Decimal `json:"attendance_rate"`
	PunctualityRate decimal.Decimal `json:"punctuality_rate"`
}

type DailyPoint struct {
	Date    string `json:"date"`
	Holiday string `json:"holiday,omitempty"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
	Absent  int    `json:"absent"`
	Leave   int    `json:"leave"`
}

type EmployeeSummary struct {
	UserID          uuid.UUID       `json:"user_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Department      string          `json:"department"`
	Present         int             `json:"present"`
	Late            int             `json:"late"`
	Absent          int             `json:"absent"`
	Leave           int             `json:"leave"`
	WorkedHours     decimal.Decimal `json:"worked_hours"`
	AttendanceRate  decimal.Decimal `json:"attendance_rate"`
	PunctualityRate decimal.Decimal `json:"punctuality_rate"`
}

// Dashboard is the aggregated KPI view for one period.
type Dashboard struct {
	Period    timeutil.PeriodKind `json:"period"`
	Custom    bool                `json:"custom"`
	Start     time.Time           `json:"start"`
	End       time.Time           `json:"end"`
	Totals    Totals              `json:"totals"`
	Daily     []DailyPoint        `json:"daily"`
	Employees []EmployeeSummary   `json:"employees"`
}

// Dashboard resolves the period and aggregates the records inside it.
func (s *Service) Dashboard(ctx context.Context, params DashboardParams) (Dashboard, error) {
	if s == nil || s.records == nil {
		return Dashboard{}, ErrServiceUnavailable
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	r, kind, err := timeutil.ParseRange(params.Period, params.Start, params.End, now)
	if err != nil {
		return Dashboard{}, err
	}
	if err := timeutil.CheckSpan(r, s.maxRangeDays); err != nil {
		return Dashboard{}, err
	}

	records, err := s.records.ListAll(ctx, params.UserID, r, maxRecords)
	if err != nil {
		return Dashboard{}, err
	}

	headcount := int64(1)
	if params.UserID == uuid.Nil {
		if s.users == nil {
			return Dashboard{}, ErrServiceUnavailable
		}
		headcount, err = s.users.CountActiveUsers(ctx)
		if err != nil {
			return Dashboard{}, err
		}
	}

	out := Dashboard{
		Period: kind,
		Custom: params.Start != "" || params.End != "",
		Start:  r.Start,
		End:    r.End,
	}
	out.Totals, out.Daily, out.Employees = s.aggregate(r, records, headcount)
	return out, nil
}

func (s *Service) aggregate(r timeutil.Range, records []attendance.Record, headcount int64) (Totals, []DailyPoint, []EmployeeSummary) {
	workingDays := 0
	if !r.Start.After(r.End) {
		workingDays = holidays.WorkingDays(r.Start.In(s.loc), r.End.In(s.loc), s.calendar)
	}

	daily := s.dailySeries(r)
	index := make(map[string]int, len(daily))
	for i, p := range daily {
		index[p.Date] = i
	}

	totals := Totals{Employees: headcount, WorkingDays: workingDays}
	perEmployee := make(map[uuid.UUID]*employeeAcc)
	var worked time.Duration
	closed := 0

	for _, rec := range records {
		if !r.Contains(rec.CheckInAt) {
			continue
		}
		totals.Records++
		acc, ok := perEmployee[rec.UserID]
		if !ok {
			acc = &employeeAcc{summary: EmployeeSummary{
				UserID:     rec.UserID,
				Name:       rec.UserName,
				Email:      rec.UserEmail,
				Department: rec.Department,
			}}
			perEmployee[rec.UserID] = acc
		}
		var point *DailyPoint
		if i, ok := index[rec.CheckInAt.In(s.loc).Format("2006-01-02")]; ok {
			point = &daily[i]
		}
		switch rec.Status {
		case db.AttendanceStatusPresent:
			totals.Present++
			acc.summary.Present++
			if point != nil {
				point.Present++
			}
		case db.AttendanceStatusLate:
			totals.Late++
			acc.summary.Late++
			if point != nil {
				point.Late++
			}
		case db.AttendanceStatusAbsent:
			totals.Absent++
			acc.summary.Absent++
			if point != nil {
				point.Absent++
			}
		case db.AttendanceStatusLeave:
			totals.Leave++
			acc.summary.Leave++
			if point != nil {
				point.Leave++
			}
		}
		if d := rec.Worked(); d > 0 {
			worked += d
			acc.worked += d
			closed++
		}
	}

	totals.ActiveEmployees = len(perEmployee)
	totals.AvgWorkedHours = hours(worked, closed)
	totals.AttendanceRate = percent(int64(totals.Present+totals.Late), headcount*int64(workingDays))
	totals.PunctualityRate = percent(int64(totals.Present), int64(totals.Present+totals.Late))

	employees := make([]EmployeeSummary, 0, len(perEmployee))
	for _, acc := range perEmployee {
		sum := acc.summary
		sum.WorkedHours = hours(acc.worked, 1)
		sum.AttendanceRate = percent(int64(sum.Present+sum.Late), int64(workingDays))
		sum.PunctualityRate = percent(int64(sum.Present), int64(sum.Present+sum.Late))
		employees = append(employees, sum)
	}
	sort.Slice(employees, func(i, j int) bool {
		if employees[i].Name != employees[j].Name {
			return employees[i].Name < employees[j].Name
		}
		return employees[i].UserID.String() < employees[j].UserID.String()
	})
	return totals, daily, employees
}

type employeeAcc struct {
	summary EmployeeSummary
	worked  time.Duration
}

// dailySeries lists every calendar day of r in the attendance timezone.
func (s *Service) dailySeries(r timeutil.Range) []DailyPoint {
	if r.Start.After(r.End) {
		return []DailyPoint{}
	}
	day := timeutil.TruncateToDay(r.Start, s.loc)
	last := timeutil.TruncateToDay(r.End, s.loc)
	var out []DailyPoint
	for !day.After(last) {
		out = append(out, DailyPoint{Date: day.Format("2006-01-02"), Holiday: s.calendar.Name(day)})
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// percent returns num/den*100 rounded to 2 places, or zero when den is zero.
func percent(num, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(den)).Round(2)
}

func hours(total time.Duration, n int) decimal.Decimal {
	if n <= 0 || total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(total.Hours()).Div(decimal.NewFromInt(int64(n))).Round(2)
}
