package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/geocode"
	"github.com/ncecere/attendance/backend/internal/limits"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

var (
	ErrServiceUnavailable  = errors.New("attendance service not initialized")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserDisabled        = errors.New("user is disabled")
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrNotCheckedIn        = errors.New("no check-in recorded today")
	ErrAlreadyCheckedOut   = errors.New("already checked out today")
	ErrRecordNotFound      = errors.New("attendance record not found")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidStatus       = errors.New("invalid attendance status")
	ErrCheckOutBeforeStart = errors.New("check-out precedes check-in")
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Store is the subset of *db.Queries used by the service.
type Store interface {
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
	GetAttendanceByUserAndDate(ctx context.Context, arg db.GetAttendanceByUserAndDateParams) (db.AttendanceRecord, error)
	GetAttendanceRecord(ctx context.Context, id pgtype.UUID) (db.AttendanceRecord, error)
	InsertAttendanceRecord(ctx context.Context, arg db.InsertAttendanceRecordParams) (db.AttendanceRecord, error)
	CheckOutAttendance(ctx context.Context, arg db.CheckOutAttendanceParams) (db.AttendanceRecord, error)
	UpdateAttendanceRecord(ctx context.Context, arg db.UpdateAttendanceRecordParams) (db.AttendanceRecord, error)
	ListAttendanceBetween(ctx context.Context, arg db.ListAttendanceBetweenParams) ([]db.ListAttendanceBetweenRow, error)
	CountAttendanceBetween(ctx context.Context, arg db.CountAttendanceBetweenParams) (int64, error)
	ListOpenAttendanceBefore(ctx context.Context, workDate pgtype.Date) ([]db.AttendanceRecord, error)
	AutoCloseAttendance(ctx context.Context, arg db.AutoCloseAttendanceParams) (db.AttendanceRecord, error)
}

// Limiter throttles check-in attempts.
type Limiter interface {
	Allow(ctx context.Context, key string, perMinute int) error
}

// Metrics receives attendance counters. *observability.Provider satisfies it.
type Metrics interface {
	RecordCheckIn(kind, status string)
	RecordAutoClosed(n int)
}

// Service implements the check-in/check-out workflow.
type Service struct {
	store    Store
	cfg      config.AttendanceConfig
	loc      *time.Location
	resolver geocode.Resolver
	limiter  Limiter
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises optional collaborators.
type Option func(*Service)

func WithResolver(r geocode.Resolver) Option { return func(s *Service) { s.resolver = r } }
func WithLimiter(l Limiter) Option           { return func(s *Service) { s.limiter = l } }
func WithMetrics(m Metrics) Option           { return func(s *Service) { s.metrics = m } }
func WithLogger(l *slog.Logger) Option       { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

func NewService(store Store, cfg config.AttendanceConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cfg:      cfg,
		loc:      cfg.Location(),
		resolver: geocode.Noop{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the attendance timezone.
func (s *Service) Location() *time.Location {
	if s == nil || s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// Record is the service view of an attendance row.
type Record struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	UserEmail       string
	UserName        string
	Department      string
	WorkDate        time.Time
	CheckInAt       time.Time
	CheckOutAt      *time.Time
	Status          db.AttendanceStatus
	CheckInLat      *float64
	CheckInLng      *float64
	CheckInAddress  string
	CheckOutLat     *float64
	CheckOutLng     *float64
	CheckOutAddress string
	Note            string
	AutoClosed      bool
	UpdatedAt       time.Time
}

// Worked returns the time between check-in and check-out, or zero while the record is open.
func (r Record) Worked() time.Duration {
	if r.CheckOutAt == nil || r.CheckOutAt.Before(r.CheckInAt) {
		return 0
	}
	return r.CheckOutAt.Sub(r.CheckInAt)
}

// CheckInParams carries a check-in request. Lat/Lng are optional as a pair.
type CheckInParams struct {
	UserID uuid.UUID
	Lat    *float64
	Lng    *float64
	Note   string
	At     time.Time
}

// CheckOutParams carries a check-out request.
type CheckOutParams struct {
	UserID uuid.UUID
	Lat    *float64
	Lng    *float64
	At     time.Time
}

// CheckIn opens today's attendance record for the user.
func (s *Service) CheckIn(ctx context.Context, params CheckInParams) (Record, error) {
	if s == nil || s.store == nil {
		return Record{}, ErrServiceUnavailable
	}
	if err := validateCoordinates(params.Lat, params.Lng); err != nil {
		return Record{}, err
	}
	if err := s.ensureActive(ctx, params.UserID); err != nil {
		return Record{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, limits.CheckInKey(params.UserID.String()), s.cfg.CheckInsPerMinute); err != nil {
			return Record{}, err
		}
	}

	at := params.At
	if at.IsZero() {
		at = s.now()
	}
	workDate := WorkDate(at, s.Location())

	_, err := s.store.GetAttendanceByUserAndDate(ctx, db.GetAttendanceByUserAndDateParams{
		UserID:   toPgUUID(params.UserID),
		WorkDate: toPgDate(workDate),
	})
	switch {
	case err == nil:
		return Record{}, ErrAlreadyCheckedIn
	case !errors.Is(err, pgx.ErrNoRows):
		return Record{}, err
	}

	place := s.lookup(ctx, params.Lat, params.Lng)
	status := ClassifyStatus(at, s.cfg.WorkStartOffset(), s.cfg.LateGrace, s.Location())

	row, err := s.store.InsertAttendanceRecord(ctx, db.InsertAttendanceRecordParams{
		UserID:         toPgUUID(params.UserID),
		WorkDate:       toPgDate(workDate),
		CheckInAt:      toPgTime(at),
		Status:         status,
		CheckInLat:     toPgFloat(params.Lat),
		CheckInLng:     toPgFloat(params.Lng),
		CheckInAddress: place.Address,
		Note:           strings.TrimSpace(params.Note),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrAlreadyCheckedIn
		}
		return Record{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordCheckIn("check_in", string(status))
	}
	return convertRecord(row), nil
}

// CheckOut closes the user's open record for the current work date.
func (s *Service) CheckOut(ctx context.Context, params CheckOutParams) (Record, error) {
	if s == nil || s.store == nil {
		return Record{}, ErrServiceUnavailable
	}
	if err := validateCoordinates(params.Lat, params.Lng); err != nil {
		return Record{}, err
	}
	if err := s.ensureActive(ctx, params.UserID); err != nil {
		return Record{}, err
	}

	at := params.At
	if at.IsZero() {
		at = s.now()
	}
	existing, err := s.store.GetAttendanceByUserAndDate(ctx, db.GetAttendanceByUserAndDateParams{
		UserID:   toPgUUID(params.UserID),
		WorkDate: toPgDate(WorkDate(at, s.Location())),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotCheckedIn
		}
		return Record{}, err
	}
	if existing.CheckOutAt.Valid {
		return Record{}, ErrAlreadyCheckedOut
	}
	if at.Before(existing.CheckInAt.Time) {
		return Record{}, ErrCheckOutBeforeStart
	}

	place := s.lookup(ctx, params.Lat, params.Lng)
	row, err := s.store.CheckOutAttendance(ctx, db.CheckOutAttendanceParams{
		ID:              existing.ID,
		CheckOutAt:      toPgTime(at),
		CheckOutLat:     toPgFloat(params.Lat),
		CheckOutLng:     toPgFloat(params.Lng),
		CheckOutAddress: place.Address,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrAlreadyCheckedOut
		}
		return Record{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordCheckIn("check_out", string(row.Status))
	}
	return convertRecord(row), nil
}

// Today returns the user's record for the work date containing now, or nil.
func (s *Service) Today(ctx context.Context, userID uuid.UUID) (*Record, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceUnavailable
	}
	row, err := s.store.GetAttendanceByUserAndDate(ctx, db.GetAttendanceByUserAndDateParams{
		UserID:   toPgUUID(userID),
		WorkDate: toPgDate(WorkDate(s.now(), s.Location())),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec := convertRecord(row)
	return &rec, nil
}

// Get returns a single record by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	if s == nil || s.store == nil {
		return Record{}, ErrServiceUnavailable
	}
	row, err := s.store.GetAttendanceRecord(ctx, toPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return convertRecord(row), nil
}

// ListFilter selects records whose check-in instant falls in Range.
type ListFilter struct {
	UserID uuid.UUID
	Range  timeutil.Range
	Limit  int32
	Offset int32
}

// List returns a page of records, newest first, and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, ErrServiceUnavailable
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	userID := toNullableUUID(filter.UserID)
	rows, err := s.store.ListAttendanceBetween(ctx, db.ListAttendanceBetweenParams{
		RangeStart: toPgTime(filter.Range.Start),
		RangeEnd:   toPgTime(filter.Range.End),
		UserID:     userID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountAttendanceBetween(ctx, db.CountAttendanceBetweenParams{
		RangeStart: toPgTime(filter.Range.Start),
		RangeEnd:   toPgTime(filter.Range.End),
		UserID:     userID,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, convertListRow(row))
	}
	return out, total, nil
}

// ListAll pages through every record in the range, ordered by check-in
// instant then id so pages never overlap.
func (s *Service) ListAll(ctx context.Context, userID uuid.UUID, r timeutil.Range, max int) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceUnavailable
	}
	params := db.ListAttendanceBetweenParams{
		RangeStart: toPgTime(r.Start),
		RangeEnd:   toPgTime(r.End),
		UserID:     toNullableUUID(userID),
		Limit:      maxListLimit,
	}
	var out []Record
	for {
		rows, err := s.store.ListAttendanceBetween(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, convertListRow(row))
		}
		if max > 0 && len(out) >= max {
			return out[:max], nil
		}
		if len(rows) < maxListLimit {
			return out, nil
		}
		params.Offset += maxListLimit
	}
}

// UpdateParams is an admin correction. Nil fields are left unchanged.
type UpdateParams struct {
	Status        *string
	Note          *string
	CheckOutAt    *time.Time
	ClearCheckOut bool
}

// Update applies an admin correction to a record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Record, error) {
	if s == nil || s.store == nil {
		return Record{}, ErrServiceUnavailable
	}
	existing, err := s.store.GetAttendanceRecord(ctx, toPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}

	update := db.UpdateAttendanceRecordParams{
		ID:         existing.ID,
		Status:     existing.Status,
		Note:       existing.Note,
		CheckOutAt: existing.CheckOutAt,
	}
	if params.Status != nil {
		status := db.AttendanceStatus(strings.ToLower(strings.TrimSpace(*params.Status)))
		if !status.Valid() {
			return Record{}, ErrInvalidStatus
		}
		update.Status = status
	}
	if params.Note != nil {
		update.Note = strings.TrimSpace(*params.Note)
	}
	switch {
	case params.ClearCheckOut:
		update.CheckOutAt = pgtype.Timestamptz{}
	case params.CheckOutAt != nil:
		if params.CheckOutAt.Before(existing.CheckInAt.Time) {
			return Record{}, ErrCheckOutBeforeStart
		}
		update.CheckOutAt = toPgTime(*params.CheckOutAt)
	}

	row, err := s.store.UpdateAttendanceRecord(ctx, update)
	if err != nil {
		return Record{}, err
	}
	return convertRecord(row), nil
}

// AutoCloseOpen closes every open record whose work date precedes before's
// date in the attendance timezone. The check-out is set to the configured
// end of that work day, or the check-in time when the check-in came later.
func (s *Service) AutoCloseOpen(ctx context.Context, before time.Time) ([]Record, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceUnavailable
	}
	loc := s.Location()
	rows, err := s.store.ListOpenAttendanceBefore(ctx, toPgDate(WorkDate(before, loc)))
	if err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}
	closed := make([]Record, 0, len(rows))
	for _, row := range rows {
		checkOut := WorkDayEnd(row.WorkDate.Time, s.cfg.WorkEndOffset(), loc)
		if checkOut.Before(row.CheckInAt.Time) {
			checkOut = row.CheckInAt.Time
		}
		updated, err := s.store.AutoCloseAttendance(ctx, db.AutoCloseAttendanceParams{
			ID:         row.ID,
			CheckOutAt: toPgTime(checkOut),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return closed, fmt.Errorf("auto close record: %w", err)
		}
		closed = append(closed, convertRecord(updated))
	}
	if s.metrics != nil && len(closed) > 0 {
		s.metrics.RecordAutoClosed(len(closed))
	}
	return closed, nil
}

// ClassifyStatus returns late when checkIn is past the workStart wall-clock
// time plus grace on its local calendar day in loc, present otherwise.
func ClassifyStatus(checkIn time.Time, workStart, grace time.Duration, loc *time.Location) db.AttendanceStatus {
	loc = timeutil.EnsureLocation(loc)
	local := checkIn.In(loc)
	deadline := atClock(local.Year(), local.Month(), local.Day(), workStart, loc).Add(grace)
	if checkIn.After(deadline) {
		return db.AttendanceStatusLate
	}
	return db.AttendanceStatusPresent
}

// WorkDate returns the calendar date of t in loc, as UTC midnight.
func WorkDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(timeutil.EnsureLocation(loc))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WorkDayEnd returns the instant the offset clock reads on workDate in loc.
func WorkDayEnd(workDate time.Time, offset time.Duration, loc *time.Location) time.Time {
	return atClock(workDate.Year(), workDate.Month(), workDate.Day(), offset, timeutil.EnsureLocation(loc))
}

// atClock reads clock as an HH:MM wall time so DST transitions shift the
// instant rather than the displayed hour.
func atClock(year int, month time.Month, day int, clock time.Duration, loc *time.Location) time.Time {
	hours := int(clock / time.Hour)
	minutes := int((clock % time.Hour) / time.Minute)
	return time.Date(year, month, day, hours, minutes, 0, 0, loc)
}

func (s *Service) ensureActive(ctx context.Context, userID uuid.UUID) error {
	user, err := s.store.GetUserByID(ctx, toPgUUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Status != db.UserStatusActive {
		return ErrUserDisabled
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, lat, lng *float64) geocode.Place {
	if lat == nil || lng == nil {
		return geocode.Place{}
	}
	return geocode.Lookup(ctx, s.resolver, *lat, *lng, s.logger)
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return ErrInvalidCoordinates
	}
	if lat == nil {
		return nil
	}
	if math.IsNaN(*lat) || math.IsNaN(*lng) || *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func convertRecord(row db.AttendanceRecord) Record {
	return Record{
		ID:              uuidFromPg(row.ID),
		UserID:          uuidFromPg(row.UserID),
		WorkDate:        row.WorkDate.Time,
		CheckInAt:       row.CheckInAt.Time,
		CheckOutAt:      timePtr(row.CheckOutAt),
		Status:          row.Status,
		CheckInLat:      floatPtr(row.CheckInLat),
		CheckInLng:      floatPtr(row.CheckInLng),
		CheckInAddress:  row.CheckInAddress,
		CheckOutLat:     floatPtr(row.CheckOutLat),
		CheckOutLng:     floatPtr(row.CheckOutLng),
		CheckOutAddress: row.CheckOutAddress,
		Note:            row.Note,
		AutoClosed:      row.AutoClosed,
		UpdatedAt:       row.UpdatedAt.Time,
	}
}

func convertListRow(row db.ListAttendanceBetweenRow) Record {
	rec := convertRecord(db.AttendanceRecord{
		ID:              row.ID,
		UserID:          row.UserID,
		WorkDate:        row.WorkDate,
		CheckInAt:       row.CheckInAt,
		CheckOutAt:      row.CheckOutAt,
		Status:          row.Status,
		CheckInLat:      row.CheckInLat,
		CheckInLng:      row.CheckInLng,
		CheckInAddress:  row.CheckInAddress,
		CheckOutLat:     row.CheckOutLat,
		CheckOutLng:     row.CheckOutLng,
		CheckOutAddress: row.CheckOutAddress,
		Note:            row.Note,
		AutoClosed:      row.AutoClosed,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	})
	rec.UserEmail = row.Email
	rec.UserName = row.Name
	rec.Department = row.Department
	return rec
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toNullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return toPgUUID(id)
}

func uuidFromPg(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func toPgDate(d time.Time) pgtype.Date {
	return pgtype.Date{Time: d, Valid: true}
}

func toPgFloat(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
