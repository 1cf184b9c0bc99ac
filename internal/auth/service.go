package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
)

const (
	ProviderLocal = "local"
	ProviderOIDC  = "oidc"

	tokenIssuer = "attendance"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrLocalDisabled      = errors.New("local authentication disabled")
	ErrOIDCDisabled       = errors.New("oidc authentication disabled")
)

// Store is the subset of *db.Queries the auth service needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	UpdateUser(ctx context.Context, arg db.UpdateUserParams) (db.User, error)
	UpdateUserLastLogin(ctx context.Context, id pgtype.UUID) error
	GetCredentialByUserAndProvider(ctx context.Context, arg db.GetCredentialByUserAndProviderParams) (db.UserCredential, error)
	UpsertCredential(ctx context.Context, arg db.UpsertCredentialParams) (db.UserCredential, error)
}

type Service struct {
	cfg          config.AuthConfig
	store        Store
	tokenManager *TokenManager
	oidc         *OIDCProvider
}

func NewService(ctx context.Context, cfg config.AuthConfig, store Store) (*Service, error) {
	tokenManager, err := NewTokenManager(cfg.Session.JWTSecret, cfg.Session.AccessTokenTTL, cfg.Session.RefreshTokenTTL, tokenIssuer)
	if err != nil {
		return nil, err
	}

	var oidcProvider *OIDCProvider
	if cfg.OIDC.Enabled {
		oidcProvider, err = NewOIDCProvider(ctx, cfg.OIDC)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		cfg:          cfg,
		store:        store,
		tokenManager: tokenManager,
		oidc:         oidcProvider,
	}, nil
}

func (s *Service) AuthenticateLocal(ctx context.Context, email, password string) (*TokenPair, db.User, error) {
	if !s.cfg.Local.Enabled {
		return nil, db.User{}, ErrLocalDisabled
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.User{}, ErrInvalidCredentials
		}
		return nil, db.User{}, fmt.Errorf("lookup user: %w", err)
	}

	cred, err := s.store.GetCredentialByUserAndProvider(ctx, db.GetCredentialByUserAndProviderParams{
		UserID:   user.ID,
		Provider: ProviderLocal,
		Issuer:   ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.User{}, ErrInvalidCredentials
		}
		return nil, db.User{}, fmt.Errorf("load credential: %w", err)
	}
	if !cred.PasswordHash.Valid {
		return nil, db.User{}, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, cred.PasswordHash.String)
	if err != nil || !match {
		return nil, db.User{}, ErrInvalidCredentials
	}
	if user.Status != db.UserStatusActive {
		return nil, db.User{}, ErrUserDisabled
	}

	return s.completeLogin(ctx, user)
}

// UpsertLocalPassword stores a fresh argon2id hash as the user's local credential.
func (s *Service) UpsertLocalPassword(ctx context.Context, userID uuid.UUID, email string, password string) error {
	if !s.cfg.Local.Enabled {
		return ErrLocalDisabled
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.store.UpsertCredential(ctx, db.UpsertCredentialParams{
		UserID:       pgtype.UUID{Bytes: userID, Valid: true},
		Provider:     ProviderLocal,
		Issuer:       ProviderLocal,
		Subject:      strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: pgtype.Text{String: hash, Valid: true},
		Metadata:     json.RawMessage(`{}`),
	})
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *Service) StartOIDCAuth(state, nonce string) (string, error) {
	if s.oidc == nil {
		return "", ErrOIDCDisabled
	}
	return s.oidc.AuthCodeURL(state, nonce), nil
}

// CompleteOIDCAuth exchanges the code, provisions unknown users as employees and
// syncs the role from IdP groups when a roles claim is configured.
func (s *Service) CompleteOIDCAuth(ctx context.Context, code string, expectedNonce string) (*TokenPair, db.User, error) {
	if s.oidc == nil {
		return nil, db.User{}, ErrOIDCDisabled
	}

	identity, err := s.oidc.Exchange(ctx, code, expectedNonce)
	if err != nil {
		return nil, db.User{}, err
	}
	return s.loginWithIdentity(ctx, identity)
}

func (s *Service) loginWithIdentity(ctx context.Context, identity *OIDCIdentity) (*TokenPair, db.User, error) {
	user, err := s.store.GetUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		user, err = s.createUserFromOIDC(ctx, identity)
		if err != nil {
			return nil, db.User{}, err
		}
	case err != nil:
		return nil, db.User{}, fmt.Errorf("get user: %w", err)
	}

	if user.Status != db.UserStatusActive {
		return nil, db.User{}, ErrUserDisabled
	}

	if identity.Role != "" && identity.Role != user.Role {
		user, err = s.store.UpdateUser(ctx, db.UpdateUserParams{
			ID:         user.ID,
			Name:       user.Name,
			Role:       identity.Role,
			Department: user.Department,
			Status:     user.Status,
		})
		if err != nil {
			return nil, db.User{}, fmt.Errorf("sync user role: %w", err)
		}
	}

	if err := s.persistOIDCCredential(ctx, user.ID, identity); err != nil {
		return nil, db.User{}, err
	}
	return s.completeLogin(ctx, user)
}

func (s *Service) createUserFromOIDC(ctx context.Context, identity *OIDCIdentity) (db.User, error) {
	name := identity.Name
	if name == "" {
		name = identity.PreferredName
	}
	if name == "" {
		name = identity.Email
	}
	role := identity.Role
	if role == "" {
		role = db.UserRoleEmployee
	}

	user, err := s.store.CreateUser(ctx, db.CreateUserParams{
		Email: strings.ToLower(identity.Email),
		Name:  name,
		Role:  role,
	})
	if err != nil {
		return db.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) persistOIDCCredential(ctx context.Context, userID pgtype.UUID, identity *OIDCIdentity) error {
	issuer := identity.Issuer
	if issuer == "" {
		issuer = s.cfg.OIDC.Issuer
	}
	metadata := identity.MetadataJSON
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}

	_, err := s.store.UpsertCredential(ctx, db.UpsertCredentialParams{
		UserID:   userID,
		Provider: ProviderOIDC,
		Issuer:   issuer,
		Subject:  identity.Subject,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("upsert oidc credential: %w", err)
	}
	return nil
}

func (s *Service) completeLogin(ctx context.Context, user db.User) (*TokenPair, db.User, error) {
	if err := s.store.UpdateUserLastLogin(ctx, user.ID); err != nil {
		return nil, db.User{}, fmt.Errorf("update last login: %w", err)
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return nil, db.User{}, err
	}
	return pair, user, nil
}

func (s *Service) AllowedAuthMethods() []string {
	methods := []string{}
	if s.cfg.Local.Enabled {
		methods = append(methods, ProviderLocal)
	}
	if s.oidc != nil {
		methods = append(methods, ProviderOIDC)
	}
	return methods
}

func (s *Service) IssueTokenPair(user db.User) (*TokenPair, error) {
	if !user.ID.Valid {
		return nil, errors.New("uuid is invalid")
	}
	return s.tokenManager.Generate(uuid.UUID(user.ID.Bytes), user.Email, string(user.Role))
}

func (s *Service) ValidateRefreshToken(token string) (uuid.UUID, error) {
	userID, _, err := s.tokenManager.Parse(token, tokenTypeRefresh)
	return userID, err
}

func (s *Service) ValidateAccessToken(token string) (uuid.UUID, error) {
	userID, _, err := s.tokenManager.Parse(token, tokenTypeAccess)
	return userID, err
}

// Refresh exchanges a refresh token for a new pair, re-reading the user so
// role changes and deactivation take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, db.User, error) {
	userID, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, db.User{}, err
	}
	user, err := s.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, db.User{}, err
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return nil, db.User{}, err
	}
	return pair, user, nil
}

func (s *Service) AuthorizeAccessToken(ctx context.Context, token string) (db.User, error) {
	userID, err := s.ValidateAccessToken(token)
	if err != nil {
		return db.User{}, err
	}
	return s.loadActiveUser(ctx, userID)
}

func (s *Service) loadActiveUser(ctx context.Context, userID uuid.UUID) (db.User, error) {
	user, err := s.store.GetUserByID(ctx, pgtype.UUID{Bytes: userID, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.User{}, ErrInvalidToken
		}
		return db.User{}, err
	}
	if user.Status != db.UserStatusActive {
		return db.User{}, ErrUserDisabled
	}
	return user, nil
}
