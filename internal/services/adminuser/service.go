package adminuser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/db"
)

var (
	ErrServiceUnavailable = errors.New("admin user service not initialized")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrNotFound           = errors.New("user not found")
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Store is the user slice of *db.Queries.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	UpdateUser(ctx context.Context, arg db.UpdateUserParams) (db.User, error)
	ListUsers(ctx context.Context, arg db.ListUsersParams) ([]db.User, error)
	CountUsers(ctx context.Context, arg db.CountUsersParams) (int64, error)
}

// PasswordSetter stores local credentials. *auth.Service satisfies it.
type PasswordSetter interface {
	UpsertLocalPassword(ctx context.Context, userID uuid.UUID, email string, password string) error
}

// Service manages admin-facing user operations.
type Service struct {
	store     Store
	passwords PasswordSetter
}

// NewService wires dependencies for the admin user service.
func NewService(store Store, passwords PasswordSetter) *Service {
	return &Service{store: store, passwords: passwords}
}

// User represents an admin-facing user record.
type User struct {
	ID          uuid.UUID
	Email       string
	Name        string
	Role        db.UserRole
	Status      db.UserStatus
	Department  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// ListParams filters the user listing. Empty fields match everything.
type ListParams struct {
	Limit  int32
	Offset int32
	Role   string
	Status string
	Query  string
}

// CreateParams describes the inputs for creating or upserting a user.
type CreateParams struct {
	Email      string
	Name       string
	Role       string
	Department string
	Password   string
}

// UpdateParams holds optional profile changes.
type UpdateParams struct {
	Name       *string
	Role       *string
	Department *string
	Status     *string
}

// List returns paginated users and the total matching count.
func (s *Service) List(ctx context.Context, params ListParams) ([]User, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, ErrServiceUnavailable
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var role db.NullUserRole
	if raw := strings.TrimSpace(params.Role); raw != "" {
		parsed, err := parseRole(raw)
		if err != nil {
			return nil, 0, err
		}
		role = db.NullUserRole{UserRole: parsed, Valid: true}
	}
	var status db.NullUserStatus
	if raw := strings.TrimSpace(params.Status); raw != "" {
		parsed, err := parseStatus(raw)
		if err != nil {
			return nil, 0, err
		}
		status = db.NullUserStatus{UserStatus: parsed, Valid: true}
	}
	var query pgtype.Text
	if q := strings.TrimSpace(params.Query); q != "" {
		query = pgtype.Text{String: q, Valid: true}
	}

	rows, err := s.store.ListUsers(ctx, db.ListUsersParams{
		Role:   role,
		Status: status,
		Query:  query,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountUsers(ctx, db.CountUsersParams{Role: role, Status: status, Query: query})
	if err != nil {
		return nil, 0, err
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		user, err := convertUser(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, user)
	}
	return out, total, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrServiceUnavailable
	}
	row, err := s.store.GetUserByID(ctx, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return convertUser(row)
}

// Create registers a new user. The email must not already exist.
func (s *Service) Create(ctx context.Context, params CreateParams) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrServiceUnavailable
	}
	email, name, role, err := normalizeCreate(params)
	if err != nil {
		return User{}, err
	}
	if pw := params.Password; pw != "" {
		if err := auth.CheckPasswordStrength(pw); err != nil {
			return User{}, err
		}
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, err
	}

	row, err := s.store.CreateUser(ctx, db.CreateUserParams{
		Email:      email,
		Name:       name,
		Role:       role,
		Department: strings.TrimSpace(params.Department),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	if err := s.setPassword(ctx, row, params.Password); err != nil {
		return User{}, err
	}
	return convertUser(row)
}

// Upsert ensures a user exists (creating if necessary), syncs role and
// department, and optionally sets a password.
func (s *Service) Upsert(ctx context.Context, params CreateParams) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrServiceUnavailable
	}
	email, name, role, err := normalizeCreate(params)
	if err != nil {
		return User{}, err
	}
	department := strings.TrimSpace(params.Department)

	userRow, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return User{}, err
		}
		userRow, err = s.store.CreateUser(ctx, db.CreateUserParams{
			Email:      email,
			Name:       name,
			Role:       role,
			Department: department,
		})
		if err != nil {
			return User{}, err
		}
	} else if userRow.Name != name || userRow.Role != role || userRow.Department != department {
		userRow, err = s.store.UpdateUser(ctx, db.UpdateUserParams{
			ID:         userRow.ID,
			Name:       name,
			Role:       role,
			Department: department,
			Status:     userRow.Status,
		})
		if err != nil {
			return User{}, err
		}
	}

	if err := s.setPassword(ctx, userRow, params.Password); err != nil {
		return User{}, err
	}
	return convertUser(userRow)
}

// Update applies profile changes to an existing user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrServiceUnavailable
	}
	existing, err := s.store.GetUserByID(ctx, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	update := db.UpdateUserParams{
		ID:         existing.ID,
		Name:       existing.Name,
		Role:       existing.Role,
		Department: existing.Department,
		Status:     existing.Status,
	}
	if params.Name != nil {
		if name := strings.TrimSpace(*params.Name); name != "" {
			update.Name = name
		}
	}
	if params.Role != nil {
		role, err := parseRole(*params.Role)
		if err != nil {
			return User{}, err
		}
		update.Role = role
	}
	if params.Department != nil {
		update.Department = strings.TrimSpace(*params.Department)
	}
	if params.Status != nil {
		status, err := parseStatus(*params.Status)
		if err != nil {
			return User{}, err
		}
		update.Status = status
	}

	row, err := s.store.UpdateUser(ctx, update)
	if err != nil {
		return User{}, err
	}
	return convertUser(row)
}

// ResetPassword replaces the user's local password.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if s == nil || s.store == nil {
		return ErrServiceUnavailable
	}
	if err := auth.CheckPasswordStrength(password); err != nil {
		return err
	}
	row, err := s.store.GetUserByID(ctx, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.setPassword(ctx, row, password)
}

func (s *Service) setPassword(ctx context.Context, row db.User, password string) error {
	if password == "" || s.passwords == nil {
		return nil
	}
	userID, err := fromPgUUID(row.ID)
	if err != nil {
		return err
	}
	return s.passwords.UpsertLocalPassword(ctx, userID, row.Email, password)
}

func normalizeCreate(params CreateParams) (string, string, db.UserRole, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return "", "", "", ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = email
	}
	role := db.UserRoleEmployee
	if strings.TrimSpace(params.Role) != "" {
		parsed, err := parseRole(params.Role)
		if err != nil {
			return "", "", "", err
		}
		role = parsed
	}
	return email, name, role, nil
}

func parseRole(raw string) (db.UserRole, error) {
	role := db.UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

func parseStatus(raw string) (db.UserStatus, error) {
	status := db.UserStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func convertUser(row db.User) (User, error) {
	id, err := fromPgUUID(row.ID)
	if err != nil {
		return User{}, err
	}
	var lastLogin *time.Time
	if row.LastLoginAt.Valid {
		ts := row.LastLoginAt.Time
		lastLogin = &ts
	}
	return User{
		ID:          id,
		Email:       row.Email,
		Name:        row.Name,
		Role:        row.Role,
		Status:      row.Status,
		Department:  row.Department,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
		LastLoginAt: lastLogin,
	}, nil
}

func fromPgUUID(id pgtype.UUID) (uuid.UUID, error) {
	if !id.Valid {
		return uuid.Nil, errors.New("invalid uuid")
	}
	return uuid.FromBytes(id.Bytes[:])
}
