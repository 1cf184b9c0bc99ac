package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
	"github.com/ncecere/attendance/backend/internal/storage/blob"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

var (
	ErrServiceUnavailable = errors.New("report service not initialized")
	ErrNotFound           = errors.New("report export not found")
)

const contentType = "text/csv"

var csvHeader = []string{
	"record_id", "email", "name", "department", "work_date", "status",
	"check_in_at", "check_out_at", "worked_hours",
	"check_in_address", "check_out_address", "auto_closed", "note",
}

// Store is the report_exports slice of *db.Queries.
type Store interface {
	InsertReportExport(ctx context.Context, arg db.InsertReportExportParams) (db.ReportExport, error)
	GetReportExport(ctx context.Context, id pgtype.UUID) (db.ReportExport, error)
	ListReportExports(ctx context.Context, arg db.ListReportExportsParams) ([]db.ReportExport, error)
}

// RecordSource loads attendance rows for a range.
type RecordSource interface {
	ListAll(ctx context.Context, userID uuid.UUID, r timeutil.Range, max int) ([]attendance.Record, error)
}

// Metrics counts exported rows.
type Metrics interface {
	RecordReportRows(n int)
}

// Service writes attendance exports to blob storage.
type Service struct {
	store   Store
	records RecordSource
	blobs   blob.Store
	loc     *time.Location
	maxRows int
	metrics Metrics
	logger  *slog.Logger
	maxDays int
}

// Option customizes the service.
type Option func(*Service)

// WithMaxRangeDays caps how many days an export range may span.
func WithMaxRangeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxDays = days
		}
	}
}

func NewService(store Store, records RecordSource, blobs blob.Store, loc *time.Location, maxRows int, metrics Metrics, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		store:   store,
		records: records,
		blobs:   blobs,
		loc:     timeutil.EnsureLocation(loc),
		maxRows: maxRows,
		metrics: metrics,
		logger:  logger,
		maxDays: timeutil.DefaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ExportParams selects what to export. Start/End are raw custom bounds.
type ExportParams struct {
	RequestedBy uuid.UUID
	UserID      uuid.UUID
	Period      string
	Start       string
	End         string
	Now         time.Time
}

// Export describes a stored report.
type Export struct {
	ID          uuid.UUID  `json:"id"`
	RequestedBy *uuid.UUID `json:"requested_by,omitempty"`
	PeriodKind  string     `json:"period"`
	RangeStart  time.Time  `json:"range_start"`
	RangeEnd    time.Time  `json:"range_end"`
	ObjectKey   string     `json:"object_key"`
	RowCount    int        `json:"row_count"`
	Truncated   bool       `json:"truncated,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Export resolves the range, writes the CSV and records the export.
func (s *Service) Export(ctx context.Context, params ExportParams) (Export, error) {
	if s == nil || s.store == nil || s.records == nil || s.blobs == nil {
		return Export{}, ErrServiceUnavailable
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	r, kind, err := timeutil.ParseRange(params.Period, params.Start, params.End, now)
	if err != nil {
		return Export{}, err
	}
	if err := timeutil.CheckSpan(r, s.maxDays); err != nil {
		return Export{}, err
	}
	periodLabel := string(kind)
	if params.Start != "" || params.End != "" {
		periodLabel = "custom"
	}

	limit := 0
	if s.maxRows > 0 {
		limit = s.maxRows + 1
	}
	records, err := s.records.ListAll(ctx, params.UserID, r, limit)
	if err != nil {
		return Export{}, fmt.Errorf("load attendance: %w", err)
	}
	truncated := false
	if s.maxRows > 0 && len(records) > s.maxRows {
		records = records[:s.maxRows]
		truncated = true
	}

	body, err := s.renderCSV(records)
	if err != nil {
		return Export{}, err
	}

	id := uuid.New()
	key := ObjectKey(id, now)
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"period": periodLabel},
	}); err != nil {
		return Export{}, fmt.Errorf("store report: %w", err)
	}

	row, err := s.store.InsertReportExport(ctx, db.InsertReportExportParams{
		ID:          pgtype.UUID{Bytes: id, Valid: true},
		RequestedBy: pgtype.UUID{Bytes: params.RequestedBy, Valid: params.RequestedBy != uuid.Nil},
		PeriodKind:  periodLabel,
		RangeStart:  pgtype.Timestamptz{Time: r.Start, Valid: true},
		RangeEnd:    pgtype.Timestamptz{Time: r.End, Valid: true},
		ObjectKey:   key,
		RowCount:    int32(len(records)),
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("remove orphaned report", slog.String("key", key), slog.Any("error", delErr))
		}
		return Export{}, fmt.Errorf("record export: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordReportRows(len(records))
	}
	out := convertExport(row)
	out.Truncated = truncated
	return out, nil
}

// Open returns the stored CSV for an export. The caller closes the reader.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, Export, error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return nil, Export{}, ErrServiceUnavailable
	}
	row, err := s.store.GetReportExport(ctx, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, Export{}, ErrNotFound
		}
		return nil, Export{}, err
	}
	rc, _, err := s.blobs.Get(ctx, row.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, Export{}, ErrNotFound
		}
		return nil, Export{}, err
	}
	return rc, convertExport(row), nil
}

// List returns exports, newest first.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]Export, error) {
	if s == nil || s.store == nil {
		return nil, ErrServiceUnavailable
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.ListReportExports(ctx, db.ListReportExportsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	out := make([]Export, 0, len(rows))
	for _, row := range rows {
		out = append(out, convertExport(row))
	}
	return out, nil
}

// ObjectKey returns reports/<yyyy>/<id>.csv.
func ObjectKey(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("reports/%04d/%s.csv", at.UTC().Year(), id)
}

// Filename is the download name offered to clients.
func (e Export) Filename() string {
	return fmt.Sprintf("attendance-%s-%s.csv", e.RangeStart.Format("20060102"), e.RangeEnd.Format("20060102"))
}

func (s *Service) renderCSV(records []attendance.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		checkOut := ""
		if rec.CheckOutAt != nil {
			checkOut = rec.CheckOutAt.In(s.loc).Format(time.RFC3339)
		}
		row := []string{
			rec.ID.String(),
			rec.UserEmail,
			rec.UserName,
			rec.Department,
			rec.WorkDate.Format("2006-01-02"),
			string(rec.Status),
			rec.CheckInAt.In(s.loc).Format(time.RFC3339),
			checkOut,
			strconv.FormatFloat(rec.Worked().Hours(), 'f', 2, 64),
			rec.CheckInAddress,
			rec.CheckOutAddress,
			strconv.FormatBool(rec.AutoClosed),
			rec.Note,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}

func convertExport(row db.ReportExport) Export {
	out := Export{
		ID:         uuid.UUID(row.ID.Bytes),
		PeriodKind: row.PeriodKind,
		RangeStart: row.RangeStart.Time,
		RangeEnd:   row.RangeEnd.Time,
		ObjectKey:  row.ObjectKey,
		RowCount:   int(row.RowCount),
		CreatedAt:  row.CreatedAt.Time,
	}
	if row.RequestedBy.Valid {
		id := uuid.UUID(row.RequestedBy.Bytes)
		out.RequestedBy = &id
	}
	return out
}
