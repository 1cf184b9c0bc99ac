package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/db"
)

// Store is the activity log slice of *db.Queries.
type Store interface {
	InsertActivityLog(ctx context.Context, arg db.InsertActivityLogParams) (db.ActivityLog, error)
	ListActivityLogs(ctx context.Context, arg db.ListActivityLogsParams) ([]db.ActivityLog, error)
	CountActivityLogs(ctx context.Context, arg db.CountActivityLogsParams) (int64, error)
}

// Service provides access to the activity log.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

var ErrServiceUnavailable = errors.New("activity log service not initialized")

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Filter controls activity log listing.
type Filter struct {
	UserID       uuid.UUID
	Action       string
	ResourceType string
	Limit        int32
	Offset       int32
}

// LogEntry represents an activity log row.
type LogEntry struct {
	ID         uuid.UUID
	UserID     *uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Metadata   []byte
	CreatedAt  time.Time
}

// List returns one page of entries, newest first, with the total matching count.
func (s *Service) List(ctx context.Context, filter Filter) ([]LogEntry, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, ErrServiceUnavailable
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	userID := toNullableUUID(filter.UserID)
	action := toNullableText(filter.Action)
	resource := toNullableText(filter.ResourceType)

	rows, err := s.store.ListActivityLogs(ctx, db.ListActivityLogsParams{
		UserID:       userID,
		Action:       action,
		ResourceType: resource,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountActivityLogs(ctx, db.CountActivityLogsParams{
		UserID:       userID,
		Action:       action,
		ResourceType: resource,
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		id, err := uuidFromPg(row.ID)
		if err != nil {
			continue
		}
		var userPtr *uuid.UUID
		if uid, err := uuidFromPg(row.UserID); err == nil {
			userPtr = &uid
		}
		entries = append(entries, LogEntry{
			ID:         id,
			UserID:     userPtr,
			Action:     row.Action,
			Resource:   row.ResourceType,
			ResourceID: row.ResourceID,
			Metadata:   row.Metadata,
			CreatedAt:  row.CreatedAt.Time,
		})
	}
	return entries, total, nil
}

// Record inserts an activity log row.
func (s *Service) Record(ctx context.Context, params db.InsertActivityLogParams) error {
	if s == nil || s.store == nil {
		return ErrServiceUnavailable
	}
	_, err := s.store.InsertActivityLog(ctx, params)
	return err
}

func toNullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toNullableText(val string) pgtype.Text {
	val = strings.TrimSpace(val)
	if val == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: val, Valid: true}
}

func uuidFromPg(id pgtype.UUID) (uuid.UUID, error) {
	if !id.Valid {
		return uuid.Nil, errors.New("invalid uuid")
	}
	return uuid.FromBytes(id.Bytes[:])
}
