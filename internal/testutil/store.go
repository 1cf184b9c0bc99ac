// Package testutil provides an in-memory stand-in for *db.Queries and a
// container builder for handler tests.
package testutil

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/db"
)

// Store keeps users, credentials, attendance, activity and report rows in maps.
type Store struct {
	mu          sync.Mutex
	users       map[uuid.UUID]db.User
	credentials map[string]db.UserCredential
	records     map[uuid.UUID]db.AttendanceRecord
	activity    []db.ActivityLog
	reports     map[uuid.UUID]db.ReportExport
}

func NewStore() *Store {
	return &Store{
		users:       map[uuid.UUID]db.User{},
		credentials: map[string]db.UserCredential{},
		records:     map[uuid.UUID]db.AttendanceRecord{},
		reports:     map[uuid.UUID]db.ReportExport{},
	}
}

// AddUser inserts an active user with the given role.
func (s *Store) AddUser(email, name string, role db.UserRole) db.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := pgNow()
	u := db.User{
		ID:        pgUUID(uuid.New()),
		Email:     strings.ToLower(email),
		Name:      name,
		Role:      role,
		Status:    db.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID.Bytes] = u
	return u
}

// SetStatus changes a user's status in place.
func (s *Store) SetStatus(id uuid.UUID, status db.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Status = status
	s.users[id] = u
}

// Activity returns a copy of the recorded activity rows, oldest first.
func (s *Store) Activity() []db.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.ActivityLog(nil), s.activity...)
}

// Records returns every attendance row.
func (s *Store) Records() []db.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.AttendanceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// users

func (s *Store) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *Store) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id.Bytes]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *Store) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := pgNow()
	u := db.User{
		ID:         pgUUID(uuid.New()),
		Email:      strings.ToLower(arg.Email),
		Name:       arg.Name,
		Role:       arg.Role,
		Status:     db.UserStatusActive,
		Department: arg.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.users[u.ID.Bytes] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, arg db.UpdateUserParams) (db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[arg.ID.Bytes]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	u.Name, u.Role, u.Department, u.Status = arg.Name, arg.Role, arg.Department, arg.Status
	u.UpdatedAt = pgNow()
	s.users[arg.ID.Bytes] = u
	return u, nil
}

func (s *Store) UpdateUserLastLogin(_ context.Context, id pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id.Bytes]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastLoginAt = pgNow()
	s.users[id.Bytes] = u
	return nil
}

func (s *Store) ListUsers(_ context.Context, arg db.ListUsersParams) ([]db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.filterUsers(arg.Role, arg.Status, arg.Query)
	return page(matched, arg.Limit, arg.Offset), nil
}

func (s *Store) CountUsers(_ context.Context, arg db.CountUsersParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filterUsers(arg.Role, arg.Status, arg.Query))), nil
}

func (s *Store) CountActiveUsers(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.Status == db.UserStatusActive {
			n++
		}
	}
	return n, nil
}

func (s *Store) filterUsers(role db.NullUserRole, status db.NullUserStatus, query pgtype.Text) []db.User {
	out := make([]db.User, 0, len(s.users))
	for _, u := range s.users {
		if role.Valid && u.Role != role.UserRole {
			continue
		}
		if status.Valid && u.Status != status.UserStatus {
			continue
		}
		if query.Valid {
			q := strings.ToLower(query.String)
			if !strings.Contains(u.Email, q) && !strings.Contains(strings.ToLower(u.Name), q) {
				continue
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// credentials

func (s *Store) GetCredentialByUserAndProvider(_ context.Context, arg db.GetCredentialByUserAndProviderParams) (db.UserCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.UserID == arg.UserID && c.Provider == arg.Provider && c.Issuer == arg.Issuer {
			return c, nil
		}
	}
	return db.UserCredential{}, pgx.ErrNoRows
}

func (s *Store) UpsertCredential(_ context.Context, arg db.UpsertCredentialParams) (db.UserCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := arg.Provider + "|" + arg.Issuer + "|" + arg.Subject
	c := s.credentials[key]
	if !c.ID.Valid {
		c.ID = pgUUID(uuid.New())
		c.CreatedAt = pgNow()
	}
	c.UserID, c.Provider, c.Issuer, c.Subject = arg.UserID, arg.Provider, arg.Issuer, arg.Subject
	c.PasswordHash, c.Metadata, c.UpdatedAt = arg.PasswordHash, arg.Metadata, pgNow()
	s.credentials[key] = c
	return c, nil
}

// attendance

func (s *Store) GetAttendanceByUserAndDate(_ context.Context, arg db.GetAttendanceByUserAndDateParams) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.UserID == arg.UserID && r.WorkDate.Time.Equal(arg.WorkDate.Time) {
			return r, nil
		}
	}
	return db.AttendanceRecord{}, pgx.ErrNoRows
}

func (s *Store) GetAttendanceRecord(_ context.Context, id pgtype.UUID) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id.Bytes]
	if !ok {
		return db.AttendanceRecord{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *Store) InsertAttendanceRecord(_ context.Context, arg db.InsertAttendanceRecordParams) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := pgNow()
	r := db.AttendanceRecord{
		ID:             pgUUID(uuid.New()),
		UserID:         arg.UserID,
		WorkDate:       arg.WorkDate,
		CheckInAt:      arg.CheckInAt,
		Status:         arg.Status,
		CheckInLat:     arg.CheckInLat,
		CheckInLng:     arg.CheckInLng,
		CheckInAddress: arg.CheckInAddress,
		Note:           arg.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.records[r.ID.Bytes] = r
	return r, nil
}

func (s *Store) CheckOutAttendance(_ context.Context, arg db.CheckOutAttendanceParams) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[arg.ID.Bytes]
	if !ok || r.CheckOutAt.Valid {
		return db.AttendanceRecord{}, pgx.ErrNoRows
	}
	r.CheckOutAt, r.CheckOutLat, r.CheckOutLng, r.CheckOutAddress = arg.CheckOutAt, arg.CheckOutLat, arg.CheckOutLng, arg.CheckOutAddress
	r.UpdatedAt = pgNow()
	s.records[arg.ID.Bytes] = r
	return r, nil
}

func (s *Store) UpdateAttendanceRecord(_ context.Context, arg db.UpdateAttendanceRecordParams) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[arg.ID.Bytes]
	if !ok {
		return db.AttendanceRecord{}, pgx.ErrNoRows
	}
	r.Status, r.Note, r.CheckOutAt = arg.Status, arg.Note, arg.CheckOutAt
	r.UpdatedAt = pgNow()
	s.records[arg.ID.Bytes] = r
	return r, nil
}

// UpsertAttendanceRecord mirrors the seed query keyed on (user, work date).
func (s *Store) UpsertAttendanceRecord(ctx context.Context, arg db.UpsertAttendanceRecordParams) (db.AttendanceRecord, error) {
	existing, err := s.GetAttendanceByUserAndDate(ctx, db.GetAttendanceByUserAndDateParams{UserID: arg.UserID, WorkDate: arg.WorkDate})
	s.mu.Lock()
	defer s.mu.Unlock()
	r := existing
	if err != nil {
		r = db.AttendanceRecord{ID: pgUUID(uuid.New()), UserID: arg.UserID, WorkDate: arg.WorkDate, CreatedAt: pgNow()}
	}
	r.CheckInAt, r.CheckOutAt, r.Status, r.CheckInAddress, r.Note = arg.CheckInAt, arg.CheckOutAt, arg.Status, arg.CheckInAddress, arg.Note
	r.UpdatedAt = pgNow()
	s.records[r.ID.Bytes] = r
	return r, nil
}

func (s *Store) ListAttendanceBetween(_ context.Context, arg db.ListAttendanceBetweenParams) ([]db.ListAttendanceBetweenRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.between(arg.RangeStart, arg.RangeEnd, arg.UserID)
	return page(rows, arg.Limit, arg.Offset), nil
}

func (s *Store) CountAttendanceBetween(_ context.Context, arg db.CountAttendanceBetweenParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.between(arg.RangeStart, arg.RangeEnd, arg.UserID))), nil
}

func (s *Store) between(start, end pgtype.Timestamptz, userID pgtype.UUID) []db.ListAttendanceBetweenRow {
	var out []db.ListAttendanceBetweenRow
	for _, r := range s.records {
		if userID.Valid && r.UserID != userID {
			continue
		}
		if r.CheckInAt.Time.Before(start.Time) || r.CheckInAt.Time.After(end.Time) {
			continue
		}
		u := s.users[r.UserID.Bytes]
		out = append(out, db.ListAttendanceBetweenRow{
			ID:              r.ID,
			UserID:          r.UserID,
			WorkDate:        r.WorkDate,
			CheckInAt:       r.CheckInAt,
			CheckOutAt:      r.CheckOutAt,
			Status:          r.Status,
			CheckInLat:      r.CheckInLat,
			CheckInLng:      r.CheckInLng,
			CheckInAddress:  r.CheckInAddress,
			CheckOutLat:     r.CheckOutLat,
			CheckOutLng:     r.CheckOutLng,
			CheckOutAddress: r.CheckOutAddress,
			Note:            r.Note,
			AutoClosed:      r.AutoClosed,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
			Email:           u.Email,
			Name:            u.Name,
			Department:      u.Department,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInAt.Time.Equal(out[j].CheckInAt.Time) {
			return out[i].CheckInAt.Time.After(out[j].CheckInAt.Time)
		}
		return bytes.Compare(out[i].ID.Bytes[:], out[j].ID.Bytes[:]) > 0
	})
	return out
}

func (s *Store) ListOpenAttendanceBefore(_ context.Context, workDate pgtype.Date) ([]db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.AttendanceRecord
	for _, r := range s.records {
		if !r.CheckOutAt.Valid && r.WorkDate.Time.Before(workDate.Time) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) AutoCloseAttendance(_ context.Context, arg db.AutoCloseAttendanceParams) (db.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[arg.ID.Bytes]
	if !ok || r.CheckOutAt.Valid {
		return db.AttendanceRecord{}, pgx.ErrNoRows
	}
	r.CheckOutAt, r.AutoClosed, r.UpdatedAt = arg.CheckOutAt, true, pgNow()
	s.records[arg.ID.Bytes] = r
	return r, nil
}

// activity

func (s *Store) InsertActivityLog(_ context.Context, arg db.InsertActivityLogParams) (db.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := db.ActivityLog{
		ID:           pgUUID(uuid.New()),
		UserID:       arg.UserID,
		Action:       arg.Action,
		ResourceType: arg.ResourceType,
		ResourceID:   arg.ResourceID,
		Metadata:     arg.Metadata,
		CreatedAt:    pgNow(),
	}
	s.activity = append(s.activity, row)
	return row, nil
}

func (s *Store) ListActivityLogs(_ context.Context, arg db.ListActivityLogsParams) ([]db.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.filterActivity(arg.UserID, arg.Action, arg.ResourceType)
	return page(matched, arg.Limit, arg.Offset), nil
}

func (s *Store) CountActivityLogs(_ context.Context, arg db.CountActivityLogsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filterActivity(arg.UserID, arg.Action, arg.ResourceType))), nil
}

func (s *Store) filterActivity(userID pgtype.UUID, action, resource pgtype.Text) []db.ActivityLog {
	var out []db.ActivityLog
	for i := len(s.activity) - 1; i >= 0; i-- {
		row := s.activity[i]
		if userID.Valid && row.UserID != userID {
			continue
		}
		if action.Valid && row.Action != action.String {
			continue
		}
		if resource.Valid && row.ResourceType != resource.String {
			continue
		}
		out = append(out, row)
	}
	return out
}

// reports

func (s *Store) InsertReportExport(_ context.Context, arg db.InsertReportExportParams) (db.ReportExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := db.ReportExport{
		ID:          arg.ID,
		RequestedBy: arg.RequestedBy,
		PeriodKind:  arg.PeriodKind,
		RangeStart:  arg.RangeStart,
		RangeEnd:    arg.RangeEnd,
		ObjectKey:   arg.ObjectKey,
		RowCount:    arg.RowCount,
		CreatedAt:   pgNow(),
	}
	s.reports[arg.ID.Bytes] = row
	return row, nil
}

func (s *Store) GetReportExport(_ context.Context, id pgtype.UUID) (db.ReportExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.reports[id.Bytes]
	if !ok {
		return db.ReportExport{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *Store) ListReportExports(_ context.Context, arg db.ListReportExportsParams) ([]db.ReportExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.ReportExport, 0, len(s.reports))
	for _, row := range s.reports {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return page(out, arg.Limit, arg.Offset), nil
}

func page[T any](rows []T, limit, offset int32) []T {
	if offset < 0 {
		offset = 0
	}
	if int(offset) >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgNow() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}
