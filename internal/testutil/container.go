package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/attendance/backend/internal/app"
	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/holidays"
	"github.com/ncecere/attendance/backend/internal/limits"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
	auditservice "github.com/ncecere/attendance/backend/internal/services/audit"
	kpisvc "github.com/ncecere/attendance/backend/internal/services/kpi"
	reportsvc "github.com/ncecere/attendance/backend/internal/services/reports"
	"github.com/ncecere/attendance/backend/internal/storage/blob"
	"github.com/ncecere/attendance/backend/internal/validation"
)

// CookieName is the session cookie used by containers built here.
const CookieName = "attendance_session"

// Env bundles a test container with its backing store and redis.
type Env struct {
	Container *app.Container
	Store     *Store
	Redis     *miniredis.Miniredis
}

// Config returns a minimal valid configuration for handler tests.
func Config() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			Session: config.SessionConfig{
				JWTSecret:       "test-secret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 24 * time.Hour,
				CookieName:      CookieName,
			},
			Local: config.LocalAuthConfig{Enabled: true},
		},
		Attendance: config.AttendanceConfig{
			Timezone:  "Africa/Nairobi",
			WorkStart: "09:00",
			WorkEnd:   "17:00",
			LateGrace: 10 * time.Minute,
		},
		Reports: config.ReportsConfig{Storage: "local", MaxRows: 1000},
	}
}

// NewEnv wires every service over an in-memory store. now fixes the clock
// seen by handlers and services; nil means time.Now.
func NewEnv(t *testing.T, now func() time.Time) *Env {
	t.Helper()
	if now == nil {
		now = time.Now
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := Config()
	store := NewStore()

	authSvc, err := auth.NewService(context.Background(), cfg.Auth, store)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	blobs, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	loc := cfg.Attendance.Location()
	limiter := limits.NewRateLimiter(rdb)
	attendance := attendancesvc.NewService(store, cfg.Attendance,
		attendancesvc.WithLimiter(limiter),
		attendancesvc.WithClock(now),
	)
	auditSvc := auditservice.NewService(store)
	calendar := holidays.Empty()

	container := &app.Container{
		Config:      cfg,
		Redis:       rdb,
		Auth:        authSvc,
		Users:       adminusersvc.NewService(store, authSvc),
		Attendance:  attendance,
		KPI:         kpisvc.NewService(attendance, store, calendar, loc, kpisvc.WithMaxRangeDays(cfg.Attendance.MaxRangeDays)),
		Reports:     reportsvc.NewService(store, attendance, blobs, loc, cfg.Reports.MaxRows, nil, nil, reportsvc.WithMaxRangeDays(cfg.Attendance.MaxRangeDays)),
		Audit:       auditSvc,
		Activity:    adminauditsvc.NewService(auditSvc),
		RateLimiter: limiter,
		Holidays:    calendar,
		Validator:   validation.New(),
		Location:    loc,
		Now:         now,
	}
	return &Env{Container: container, Store: store, Redis: mr}
}

// Login creates a user with a local password and returns an access token for it.
func (e *Env) Login(t *testing.T, email string, role db.UserRole) (db.User, string) {
	t.Helper()
	user := e.Store.AddUser(email, email, role)
	pair, err := e.Container.Auth.IssueTokenPair(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, pair.AccessToken
}

// NewRequest builds a request for fiber's App.Test. A non-nil body is sent as
// JSON and a non-empty token as a bearer credential.
func NewRequest(t *testing.T, method, target string, body any, token string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

// DecodeJSON reads a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
