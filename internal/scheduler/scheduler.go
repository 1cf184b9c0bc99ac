package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ncecere/attendance/backend/internal/services/adminaudit"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
	"github.com/ncecere/attendance/backend/internal/timeutil"
)

// Closer closes attendance records left open on earlier work days.
type Closer interface {
	AutoCloseOpen(ctx context.Context, before time.Time) ([]attendance.Record, error)
}

// Activity records system actions.
type Activity interface {
	Record(ctx context.Context, actorID uuid.UUID, action, resourceType, resourceID string, metadata any) error
}

// Scheduler runs the auto-checkout job on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	closer   Closer
	activity Activity
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
}

// New parses schedule (standard five-field cron, evaluated in loc) and registers the job.
func New(schedule string, loc *time.Location, closer Closer, activity Activity, logger *slog.Logger) (*Scheduler, error) {
	if closer == nil {
		return nil, errors.New("scheduler: closer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc = timeutil.EnsureLocation(loc)
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		closer:   closer,
		activity: activity,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		timeout:  5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("auto checkout failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is canceled, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	if s == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce closes records from work days before today in the attendance timezone.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := timeutil.TruncateToDay(s.now(), s.loc)
	closed, err := s.closer.AutoCloseOpen(ctx, cutoff)
	for _, rec := range closed {
		if s.activity == nil {
			break
		}
		meta := map[string]any{
			"user_id":      rec.UserID.String(),
			"work_date":    rec.WorkDate.Format("2006-01-02"),
			"check_out_at": rec.CheckOutAt,
		}
		if aerr := s.activity.Record(ctx, uuid.Nil, adminaudit.ActionAutoCheckout, "attendance", rec.ID.String(), meta); aerr != nil {
			s.logger.Warn("record auto checkout activity", slog.String("record_id", rec.ID.String()), slog.String("error", aerr.Error()))
		}
	}
	if err != nil {
		return len(closed), err
	}
	if len(closed) > 0 {
		s.logger.Info("auto checkout closed records", slog.Int("count", len(closed)), slog.Time("cutoff", cutoff))
	}
	return len(closed), nil
}
