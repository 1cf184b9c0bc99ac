package requestctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/db"
)

type contextKey string

const fiberLocalsKey = "requestctx"

// Key is the typed context key used for storing the Identity.
var Key contextKey = "attendance/identity"

// Identity is the authenticated caller resolved from the session token.
type Identity struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	Role       db.UserRole
	Department string
}

// WithIdentity embeds the identity into the parent context.
func WithIdentity(parent context.Context, id *Identity) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, Key, id)
}

// FromContext retrieves the identity if present.
func FromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok && id != nil
}

// FiberLocalsKey returns the key used in fiber.Locals for identity storage.
func FiberLocalsKey() string {
	return fiberLocalsKey
}
