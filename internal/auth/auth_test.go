package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.Contains(t, hash, "argon2id$v=19$")

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong horse", hash)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = VerifyPassword("x", "bcrypt$whatever")
	require.Error(t, err)
}

func TestCheckPasswordStrength(t *testing.T) {
	require.ErrorIs(t, CheckPasswordStrength("short"), ErrWeakPassword)
	require.NoError(t, CheckPasswordStrength("long enough"))
}

func TestTokenManagerRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Minute, time.Hour, "attendance")
	require.NoError(t, err)

	userID := uuid.New()
	pair, err := tm.Generate(userID, "ana@example.com", "manager")
	require.NoError(t, err)

	got, claims, err := tm.Parse(pair.AccessToken, tokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, userID, got)
	require.Equal(t, "manager", claims.Role)

	_, _, err = tm.Parse(pair.AccessToken, tokenTypeRefresh)
	require.ErrorIs(t, err, ErrInvalidToken)

	got, _, err = tm.Parse(pair.RefreshToken, tokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, userID, got)
}

func TestTokenManagerRejectsExpiredAndForeignTokens(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Minute, time.Hour, "attendance")
	require.NoError(t, err)
	pair, err := tm.Generate(uuid.New(), "ana@example.com", "employee")
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = tm.Parse(pair.AccessToken, tokenTypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenManager("other", time.Minute, time.Hour, "attendance")
	require.NoError(t, err)
	_, _, err = other.Parse(pair.RefreshToken, tokenTypeRefresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

type stubStore struct {
	users       map[string]db.User
	credentials map[string]db.UserCredential
	lastLogin   []pgtype.UUID
	created     []db.CreateUserParams
	updated     []db.UpdateUserParams
	upserted    []db.UpsertCredentialParams
}

func newStubStore() *stubStore {
	return &stubStore{users: map[string]db.User{}, credentials: map[string]db.UserCredential{}}
}

func (s *stubStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *stubStore) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	u, ok := s.users[uuid.UUID(id.Bytes).String()]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *stubStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	s.created = append(s.created, arg)
	u := db.User{
		ID:     pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Email:  arg.Email,
		Name:   arg.Name,
		Role:   arg.Role,
		Status: db.UserStatusActive,
	}
	s.users[uuid.UUID(u.ID.Bytes).String()] = u
	return u, nil
}

func (s *stubStore) UpdateUser(_ context.Context, arg db.UpdateUserParams) (db.User, error) {
	s.updated = append(s.updated, arg)
	u := s.users[uuid.UUID(arg.ID.Bytes).String()]
	u.Name, u.Role, u.Department, u.Status = arg.Name, arg.Role, arg.Department, arg.Status
	s.users[uuid.UUID(arg.ID.Bytes).String()] = u
	return u, nil
}

func (s *stubStore) UpdateUserLastLogin(_ context.Context, id pgtype.UUID) error {
	s.lastLogin = append(s.lastLogin, id)
	return nil
}

func (s *stubStore) GetCredentialByUserAndProvider(_ context.Context, arg db.GetCredentialByUserAndProviderParams) (db.UserCredential, error) {
	c, ok := s.credentials[uuid.UUID(arg.UserID.Bytes).String()+arg.Provider]
	if !ok {
		return db.UserCredential{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubStore) UpsertCredential(_ context.Context, arg db.UpsertCredentialParams) (db.UserCredential, error) {
	s.upserted = append(s.upserted, arg)
	c := db.UserCredential{UserID: arg.UserID, Provider: arg.Provider, Issuer: arg.Issuer, Subject: arg.Subject, PasswordHash: arg.PasswordHash}
	s.credentials[uuid.UUID(arg.UserID.Bytes).String()+arg.Provider] = c
	return c, nil
}

func (s *stubStore) addUser(email string, role db.UserRole, status db.UserStatus) db.User {
	u := db.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Email: email, Name: email, Role: role, Status: status}
	s.users[uuid.UUID(u.ID.Bytes).String()] = u
	return u
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), config.AuthConfig{
		Session: config.SessionConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		Local:   config.LocalAuthConfig{Enabled: true},
	}, store)
	require.NoError(t, err)
	return svc
}

func TestAuthenticateLocal(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(t, store)
	user := store.addUser("ana@example.com", db.UserRoleEmployee, db.UserStatusActive)
	require.NoError(t, svc.UpsertLocalPassword(ctx, uuid.UUID(user.ID.Bytes), user.Email, "s3cret-pass"))

	pair, got, err := svc.AuthenticateLocal(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Len(t, store.lastLogin, 1)

	authorized, err := svc.AuthorizeAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.Email, authorized.Email)

	_, _, err = svc.AuthenticateLocal(ctx, "ana@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.AuthenticateLocal(ctx, "ghost@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateLocalRejectsDisabledUser(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(t, store)
	user := store.addUser("off@example.com", db.UserRoleEmployee, db.UserStatusDisabled)
	require.NoError(t, svc.UpsertLocalPassword(ctx, uuid.UUID(user.ID.Bytes), user.Email, "s3cret-pass"))

	_, _, err := svc.AuthenticateLocal(ctx, "off@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(t, store)
	user := store.addUser("ana@example.com", db.UserRoleEmployee, db.UserStatusActive)

	pair, err := svc.IssueTokenPair(user)
	require.NoError(t, err)

	refreshed, _, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)

	user.Status = db.UserStatusDisabled
	store.users[uuid.UUID(user.ID.Bytes).String()] = user
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.True(t, errors.Is(err, ErrUserDisabled))
}

func TestLoginWithIdentityProvisionsAndSyncsRole(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(t, store)

	_, user, err := svc.loginWithIdentity(ctx, &OIDCIdentity{Subject: "sub-1", Email: "new@example.com", Name: "New Hire"})
	require.NoError(t, err)
	require.Equal(t, db.UserRoleEmployee, user.Role)
	require.Len(t, store.created, 1)
	require.Len(t, store.upserted, 1)
	require.Equal(t, ProviderOIDC, store.upserted[0].Provider)

	_, user, err = svc.loginWithIdentity(ctx, &OIDCIdentity{Subject: "sub-1", Email: "new@example.com", Role: db.UserRoleManager})
	require.NoError(t, err)
	require.Equal(t, db.UserRoleManager, user.Role)
	require.Len(t, store.created, 1)
	require.Len(t, store.updated, 1)
}

func TestRoleForGroups(t *testing.T) {
	p := &OIDCProvider{
		rolesClaim:    "groups",
		adminGroups:   normalizeGroupSet([]string{"HR-Admins"}),
		managerGroups: normalizeGroupSet([]string{"team-leads"}),
	}
	groups := extractGroups(map[string]any{"groups": []any{" hr-admins ", "team-leads", "hr-admins"}}, "groups")
	require.Equal(t, []string{"hr-admins", "team-leads"}, groups)
	require.Equal(t, db.UserRoleAdmin, p.roleFor(groups))
	require.Equal(t, db.UserRoleManager, p.roleFor([]string{"team-leads"}))
	require.Equal(t, db.UserRoleEmployee, p.roleFor(nil))

	p.rolesClaim = ""
	require.Equal(t, db.UserRole(""), p.roleFor(groups))
}
