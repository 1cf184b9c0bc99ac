package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	oidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
)

// OIDCIdentity is the verified subject of an OIDC login.
type OIDCIdentity struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	PreferredName string
	Groups        []string
	// Role is empty when no roles claim is configured, meaning the stored role is left alone.
	Role         db.UserRole
	MetadataJSON []byte
}

type OIDCProvider struct {
	cfg            config.OIDCConfig
	provider       *oidc.Provider
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains map[string]struct{}
	rolesClaim     string
	adminGroups    map[string]struct{}
	managerGroups  map[string]struct{}
}

func NewOIDCProvider(ctx context.Context, cfg config.OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		allowed[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	return &OIDCProvider{
		cfg:      cfg,
		provider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		allowedDomains: allowed,
		rolesClaim:     strings.TrimSpace(cfg.RolesClaim),
		adminGroups:    normalizeGroupSet(cfg.AdminRoles),
		managerGroups:  normalizeGroupSet(cfg.ManagerRoles),
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state string, nonce string) string {
	var opts []oauth2.AuthCodeOption
	if nonce != "" {
		opts = append(opts, oidc.Nonce(nonce))
	}
	return p.oauth2Config.AuthCodeURL(state, opts...)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string, expectedNonce string) (*OIDCIdentity, error) {
	timeout := p.cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	exchangeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	oauth2Token, err := p.oauth2Config.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("oidc: missing id_token in token response")
	}

	idToken, err := p.verifier.Verify(exchangeCtx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if expectedNonce != "" && idToken.Nonce != expectedNonce {
		return nil, errors.New("oidc: nonce mismatch")
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id token claims: %w", err)
	}

	identity := &OIDCIdentity{
		Issuer:  idToken.Issuer,
		Subject: idToken.Subject,
	}
	identity.fill(claims, p.rolesClaim)

	if identity.Email == "" || (p.rolesClaim != "" && len(identity.Groups) == 0) {
		userInfo, err := p.provider.UserInfo(exchangeCtx, oauth2.StaticTokenSource(oauth2Token))
		if err != nil {
			return nil, fmt.Errorf("fetch userinfo: %w", err)
		}
		var infoClaims map[string]any
		if err := userInfo.Claims(&infoClaims); err != nil {
			return nil, fmt.Errorf("parse userinfo claims: %w", err)
		}
		identity.fill(infoClaims, p.rolesClaim)
	}
	if identity.Email == "" {
		return nil, errors.New("oidc: email not present in claims")
	}

	if len(p.allowedDomains) > 0 {
		domain, err := emailDomain(identity.Email)
		if err != nil {
			return nil, err
		}
		if _, ok := p.allowedDomains[domain]; !ok {
			return nil, fmt.Errorf("email domain %s not permitted", domain)
		}
	}

	identity.Role = p.roleFor(identity.Groups)

	metadata, err := json.Marshal(map[string]any{
		"email":          identity.Email,
		"email_verified": identity.EmailVerified,
		"name":           identity.Name,
		"groups":         identity.Groups,
		"expiry":         oauth2Token.Expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}
	identity.MetadataJSON = metadata
	return identity, nil
}

// fill copies profile claims that are still unset on the identity.
func (id *OIDCIdentity) fill(claims map[string]any, rolesClaim string) {
	if id.Email == "" {
		id.Email, _ = claims["email"].(string)
		id.EmailVerified, _ = claims["email_verified"].(bool)
	}
	if id.Name == "" {
		id.Name, _ = claims["name"].(string)
	}
	if id.PreferredName == "" {
		id.PreferredName, _ = claims["preferred_username"].(string)
	}
	if len(id.Groups) == 0 {
		id.Groups = extractGroups(claims, rolesClaim)
	}
}

// roleFor maps IdP groups onto an application role. Admin wins over manager.
func (p *OIDCProvider) roleFor(groups []string) db.UserRole {
	if p.rolesClaim == "" {
		return ""
	}
	switch {
	case hasMatchingGroup(groups, p.adminGroups):
		return db.UserRoleAdmin
	case hasMatchingGroup(groups, p.managerGroups):
		return db.UserRoleManager
	default:
		return db.UserRoleEmployee
	}
}

func emailDomain(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if domain == "" {
		return "", fmt.Errorf("invalid email domain %q", email)
	}
	return domain, nil
}

func extractGroups(claims map[string]any, field string) []string {
	if len(claims) == 0 || field == "" {
		return nil
	}
	var raw []string
	switch v := claims[field].(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case map[string]any:
		for key, flag := range v {
			if b, ok := flag.(bool); ok && b {
				raw = append(raw, key)
			}
		}
	}

	seen := make(map[string]struct{}, len(raw))
	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		g = normalizeGroup(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		groups = append(groups, g)
	}
	return groups
}

func normalizeGroup(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

func normalizeGroupSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if g := normalizeGroup(v); g != "" {
			set[g] = struct{}{}
		}
	}
	return set
}

func hasMatchingGroup(groups []string, set map[string]struct{}) bool {
	for _, g := range groups {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}
