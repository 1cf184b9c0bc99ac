package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
)

type userStore struct {
	users map[string]db.User
}

func (s *userStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	u, ok := s.users[email]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *userStore) GetUserByID(context.Context, pgtype.UUID) (db.User, error) {
	return db.User{}, pgx.ErrNoRows
}

func (s *userStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	u := db.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Email: arg.Email, Name: arg.Name, Role: arg.Role, Department: arg.Department, Status: db.UserStatusActive}
	s.users[arg.Email] = u
	return u, nil
}

func (s *userStore) UpdateUser(_ context.Context, arg db.UpdateUserParams) (db.User, error) {
	for email, u := range s.users {
		if u.ID == arg.ID {
			u.Name, u.Role, u.Department, u.Status = arg.Name, arg.Role, arg.Department, arg.Status
			s.users[email] = u
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *userStore) ListUsers(context.Context, db.ListUsersParams) ([]db.User, error) { return nil, nil }
func (s *userStore) CountUsers(context.Context, db.CountUsersParams) (int64, error)   { return 0, nil }

type passwordRecorder struct{ emails []string }

func (p *passwordRecorder) UpsertLocalPassword(_ context.Context, _ uuid.UUID, email string, _ string) error {
	p.emails = append(p.emails, email)
	return nil
}

func TestNewContainerRequiresPrimitives(t *testing.T) {
	if _, err := NewContainer(context.Background(), nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewContainer(context.Background(), &config.Config{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestEnsureBootstrapPromotesAdmins(t *testing.T) {
	store := &userStore{users: map[string]db.User{
		"boss@example.com": {ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Email: "boss@example.com", Name: "Boss", Role: db.UserRoleEmployee, Status: db.UserStatusActive},
	}}
	pw := &passwordRecorder{}
	c := &Container{Users: adminusersvc.NewService(store, pw)}

	err := c.ensureBootstrap(context.Background(), config.BootstrapConfig{AdminUsers: []config.BootstrapUser{
		{Email: "boss@example.com", Name: "Boss", Password: "super-secret"},
		{Email: "new@example.com", Name: "New Admin", Password: "another-secret"},
		{Email: "  "},
	}})
	if err != nil {
		t.Fatalf("ensureBootstrap: %v", err)
	}
	if got := store.users["boss@example.com"].Role; got != db.UserRoleAdmin {
		t.Fatalf("existing user not promoted, role=%s", got)
	}
	if got := store.users["new@example.com"].Role; got != db.UserRoleAdmin {
		t.Fatalf("new admin role=%s", got)
	}
	if len(pw.emails) != 2 {
		t.Fatalf("expected 2 password upserts, got %d", len(pw.emails))
	}
}

func TestClockDefaults(t *testing.T) {
	var c *Container
	if c.Clock().IsZero() {
		t.Fatal("nil container clock should fall back to time.Now")
	}
	fixed := time.Date(2023, 10, 4, 12, 0, 0, 0, time.UTC)
	c = &Container{Now: func() time.Time { return fixed }}
	if !c.Clock().Equal(fixed) {
		t.Fatalf("unexpected clock %s", c.Clock())
	}
}
