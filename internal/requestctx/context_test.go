package requestctx

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/db"
)

func TestIdentityRoundTrip(t *testing.T) {
	id := &Identity{UserID: uuid.New(), Email: "ana@example.com", Role: db.UserRoleManager}
	ctx := WithIdentity(context.Background(), id)
	got, ok := FromContext(ctx)
	if !ok || got.UserID != id.UserID || got.Role != db.UserRoleManager {
		t.Fatalf("unexpected identity %+v %v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no identity on empty context")
	}
}
