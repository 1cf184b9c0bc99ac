package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
	"github.com/ncecere/attendance/backend/internal/storage/blob"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

type memStore struct {
	rows      map[uuid.UUID]db.ReportExport
	insertErr error
}

func (m *memStore) InsertReportExport(_ context.Context, arg db.InsertReportExportParams) (db.ReportExport, error) {
	if m.insertErr != nil {
		return db.ReportExport{}, m.insertErr
	}
	row := db.ReportExport{
		ID:          arg.ID,
		RequestedBy: arg.RequestedBy,
		PeriodKind:  arg.PeriodKind,
		RangeStart:  arg.RangeStart,
		RangeEnd:    arg.RangeEnd,
		ObjectKey:   arg.ObjectKey,
		RowCount:    arg.RowCount,
		CreatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	m.rows[uuid.UUID(arg.ID.Bytes)] = row
	return row, nil
}

func (m *memStore) GetReportExport(_ context.Context, id pgtype.UUID) (db.ReportExport, error) {
	row, ok := m.rows[uuid.UUID(id.Bytes)]
	if !ok {
		return db.ReportExport{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *memStore) ListReportExports(context.Context, db.ListReportExportsParams) ([]db.ReportExport, error) {
	out := make([]db.ReportExport, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

type stubRecords struct {
	records []attendance.Record
	max     int
	rng     timeutil.Range
}

func (s *stubRecords) ListAll(_ context.Context, _ uuid.UUID, r timeutil.Range, max int) ([]attendance.Record, error) {
	s.max = max
	s.rng = r
	if max > 0 && len(s.records) > max {
		return s.records[:max], nil
	}
	return s.records, nil
}

type countMetrics struct{ rows int }

func (c *countMetrics) RecordReportRows(n int) { c.rows += n }

func sampleRecords(n int) []attendance.Record {
	base := time.Date(2023, 10, 2, 8, 0, 0, 0, time.UTC)
	out := make([]attendance.Record, 0, n)
	for i := 0; i < n; i++ {
		in := base.AddDate(0, 0, i)
		outAt := in.Add(8*time.Hour + 30*time.Minute)
		out = append(out, attendance.Record{
			ID:             uuid.New(),
			UserEmail:      "ann@example.com",
			UserName:       "Ann, Field",
			WorkDate:       time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, time.UTC),
			CheckInAt:      in,
			CheckOutAt:     &outAt,
			Status:         db.AttendanceStatusPresent,
			CheckInAddress: "1 Main St",
		})
	}
	return out
}

func newService(t *testing.T, records []attendance.Record, maxRows int) (*Service, *memStore, *stubRecords, *countMetrics) {
	t.Helper()
	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	store := &memStore{rows: map[uuid.UUID]db.ReportExport{}}
	src := &stubRecords{records: records}
	metrics := &countMetrics{}
	return NewService(store, src, blobs, time.UTC, maxRows, metrics, nil), store, src, metrics
}

func TestExportWritesCSVAndRecord(t *testing.T) {
	svc, store, src, metrics := newService(t, sampleRecords(3), 0)
	admin := uuid.New()
	now := time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)

	exp, err := svc.Export(context.Background(), ExportParams{RequestedBy: admin, Period: "weekly", Now: now})
	require.NoError(t, err)
	require.Equal(t, "weekly", exp.PeriodKind)
	require.Equal(t, 3, exp.RowCount)
	require.Equal(t, ObjectKey(exp.ID, now), exp.ObjectKey)
	require.True(t, strings.HasPrefix(exp.ObjectKey, "reports/2023/"))
	require.Equal(t, admin, *exp.RequestedBy)
	require.Equal(t, now, src.rng.End)
	require.Len(t, store.rows, 1)
	require.Equal(t, 3, metrics.rows)

	rc, opened, err := svc.Open(context.Background(), exp.ID)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, exp.ID, opened.ID)

	rows, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, csvHeader, rows[0])
	require.Equal(t, "Ann, Field", rows[1][2])
	require.Equal(t, "8.50", rows[1][8])
	require.Equal(t, "2023-10-02", rows[1][4])
}

func TestExportCustomRangeAndTruncation(t *testing.T) {
	svc, _, src, _ := newService(t, sampleRecords(5), 2)
	exp, err := svc.Export(context.Background(), ExportParams{Start: "2023-10-01", End: "2023-10-31", Now: time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, "custom", exp.PeriodKind)
	require.Equal(t, 2, exp.RowCount)
	require.True(t, exp.Truncated)
	require.Equal(t, 3, src.max)
	require.Equal(t, "attendance-20231001-20231031.csv", exp.Filename())
}

func TestExportInvalidRange(t *testing.T) {
	svc, _, _, _ := newService(t, nil, 0)
	_, err := svc.Export(context.Background(), ExportParams{Start: "yesterday"})
	require.ErrorIs(t, err, timeutil.ErrInvalidRange)
}

func TestExportRejectsOversizedRange(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blob.NewLocal(dir)
	require.NoError(t, err)
	store := &memStore{rows: map[uuid.UUID]db.ReportExport{}}
	src := &stubRecords{}
	svc := NewService(store, src, blobs, time.UTC, 0, nil, nil, WithMaxRangeDays(31))
	now := time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC)

	_, err = svc.Export(context.Background(), ExportParams{Start: "0001-01-01", Now: now})
	require.ErrorIs(t, err, timeutil.ErrInvalidRange)
	_, err = svc.Export(context.Background(), ExportParams{Start: "2023-09-01", End: "2023-10-31", Now: now})
	require.ErrorIs(t, err, timeutil.ErrRangeTooLong)
	require.Empty(t, store.rows)
	files, err := countFiles(dir)
	require.NoError(t, err)
	require.Zero(t, files)

	exp, err := svc.Export(context.Background(), ExportParams{Start: "2023-10-01", End: "2023-10-31", Now: now})
	require.NoError(t, err)
	require.Equal(t, "custom", exp.PeriodKind)
}

func TestExportRemovesBlobWhenInsertFails(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blob.NewLocal(dir)
	require.NoError(t, err)
	store := &memStore{rows: map[uuid.UUID]db.ReportExport{}, insertErr: errors.New("db down")}
	svc := NewService(store, &stubRecords{}, blobs, time.UTC, 0, nil, nil)

	now := time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)
	_, err = svc.Export(context.Background(), ExportParams{Now: now})
	require.Error(t, err)

	files, err := countFiles(dir)
	require.NoError(t, err)
	require.Zero(t, files)
}

func TestOpenMissing(t *testing.T) {
	svc, _, _, _ := newService(t, nil, 0)
	_, _, err := svc.Open(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _, _, _ := newService(t, sampleRecords(1), 0)
	_, err := svc.Export(context.Background(), ExportParams{Now: time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	list, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}
