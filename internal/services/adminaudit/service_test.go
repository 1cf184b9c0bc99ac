package adminaudit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/db"
)

type stubRecorder struct {
	params db.InsertActivityLogParams
	err    error
}

func (s *stubRecorder) Record(ctx context.Context, params db.InsertActivityLogParams) error {
	s.params = params
	return s.err
}

func TestServiceRecord_Success(t *testing.T) {
	stub := &stubRecorder{}
	svc := NewService(stub)

	userID := uuid.New()
	meta := map[string]string{"address": "Main St"}
	if err := svc.Record(context.Background(), userID, ActionCheckIn, "attendance", "rec-1", meta); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if stub.params.Action != ActionCheckIn || stub.params.ResourceType != "attendance" || stub.params.ResourceID != "rec-1" {
		t.Fatalf("unexpected params: %+v", stub.params)
	}
	if !stub.params.UserID.Valid || stub.params.UserID.Bytes != userID {
		t.Fatalf("user id not propagated")
	}
	var decoded map[string]string
	if err := json.Unmarshal(stub.params.Metadata, &decoded); err != nil {
		t.Fatalf("metadata not valid json: %v", err)
	}
	if decoded["address"] != "Main St" {
		t.Fatalf("metadata mismatch: %+v", decoded)
	}
}

func TestServiceRecord_SystemActor(t *testing.T) {
	stub := &stubRecorder{}
	if err := NewService(stub).Record(context.Background(), uuid.Nil, ActionAutoCheckout, "attendance", "", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if stub.params.UserID.Valid {
		t.Fatalf("system actions should have a null user")
	}
	if string(stub.params.Metadata) != "{}" {
		t.Fatalf("expected empty metadata, got %s", stub.params.Metadata)
	}
}

func TestServiceRecord_Unavailable(t *testing.T) {
	svc := NewService(nil)
	err := svc.Record(context.Background(), uuid.New(), "a", "b", "c", nil)
	if err == nil {
		t.Fatal("expected error when recorder is nil")
	}
}
