package adminaudit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/db"
	auditservice "github.com/ncecere/attendance/backend/internal/services/audit"
)

// Activity actions written by handlers and background jobs.
const (
	ActionLogin             = "auth.login"
	ActionLogout            = "auth.logout"
	ActionCheckIn           = "attendance.check_in"
	ActionCheckOut          = "attendance.check_out"
	ActionAttendanceUpdate  = "attendance.update"
	ActionAutoCheckout      = "attendance.auto_checkout"
	ActionUserCreate        = "user.create"
	ActionUserUpdate        = "user.update"
	ActionUserPasswordReset = "user.password_reset"
	ActionReportExport      = "report.export"
)

// Recorder defines the minimal activity recorder contract.
type Recorder interface {
	Record(ctx context.Context, params db.InsertActivityLogParams) error
}

// Service wraps activity recording with metadata helpers.
type Service struct {
	audit Recorder
}

func NewService(audit Recorder) *Service {
	return &Service{audit: audit}
}

// Record inserts an activity entry with JSON metadata. A nil actor records a system action.
func (s *Service) Record(ctx context.Context, actorID uuid.UUID, action, resourceType, resourceID string, metadata any) error {
	if s == nil || s.audit == nil {
		return auditservice.ErrServiceUnavailable
	}
	metaBytes := []byte("{}")
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		metaBytes = data
	}
	return s.audit.Record(ctx, db.InsertActivityLogParams{
		UserID:       pgtype.UUID{Bytes: actorID, Valid: actorID != uuid.Nil},
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metaBytes,
	})
}
