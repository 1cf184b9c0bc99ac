package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/cache"
	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/db"
	"github.com/ncecere/attendance/backend/internal/geocode"
	"github.com/ncecere/attendance/backend/internal/holidays"
	"github.com/ncecere/attendance/backend/internal/limits"
	"github.com/ncecere/attendance/backend/internal/observability"
	adminauditsvc "github.com/ncecere/attendance/backend/internal/services/adminaudit"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
	auditservice "github.com/ncecere/attendance/backend/internal/services/audit"
	kpisvc "github.com/ncecere/attendance/backend/internal/services/kpi"
	reportsvc "github.com/ncecere/attendance/backend/internal/services/reports"
	"github.com/ncecere/attendance/backend/internal/storage/blob"
	"github.com/ncecere/attendance/backend/internal/validation"
)

const geocodeCachePrefix = "geocode:"

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config        *config.Config
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	Queries       *db.Queries
	Auth          *auth.Service
	Users         *adminusersvc.Service
	Attendance    *attendancesvc.Service
	KPI           *kpisvc.Service
	Reports       *reportsvc.Service
	Audit         *auditservice.Service
	Activity      *adminauditsvc.Service
	RateLimiter   *limits.RateLimiter
	Holidays      *holidays.Calendar
	Validator     *validation.Validator
	Observability *observability.Provider
	Location      *time.Location
	Now           func() time.Time
}

// NewContainer builds a dependency container from the provided primitives.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, obs *observability.Provider) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("db pool is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	queries := db.New(pool)
	logger := slog.Default()
	loc := cfg.Attendance.Location()

	calendar, err := holidays.LoadFile(cfg.Attendance.HolidaysFile)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}

	authSvc, err := auth.NewService(ctx, cfg.Auth, queries)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	var resolver geocode.Resolver = geocode.Noop{}
	if cfg.Geocoding.Enabled {
		resolver = geocode.NewCachedResolver(
			geocode.NewClient(cfg.Geocoding),
			cache.NewJSONCache(redisClient, geocodeCachePrefix, cfg.Geocoding.CacheTTL),
			obs,
			logger,
		)
	}

	blobs, err := blob.New(ctx, cfg.Reports)
	if err != nil {
		return nil, fmt.Errorf("init report storage: %w", err)
	}

	limiter := limits.NewRateLimiter(redisClient)
	attendance := attendancesvc.NewService(queries, cfg.Attendance,
		attendancesvc.WithResolver(resolver),
		attendancesvc.WithLimiter(limiter),
		attendancesvc.WithMetrics(obs),
		attendancesvc.WithLogger(logger),
	)
	auditSvc := auditservice.NewService(queries)

	container := &Container{
		Config:        cfg,
		DBPool:        pool,
		Redis:         redisClient,
		Queries:       queries,
		Auth:          authSvc,
		Users:         adminusersvc.NewService(queries, authSvc),
		Attendance:    attendance,
		KPI:           kpisvc.NewService(attendance, queries, calendar, loc, kpisvc.WithMaxRangeDays(cfg.Attendance.MaxRangeDays)),
		Reports:       reportsvc.NewService(queries, attendance, blobs, loc, cfg.Reports.MaxRows, obs, logger, reportsvc.WithMaxRangeDays(cfg.Attendance.MaxRangeDays)),
		Audit:         auditSvc,
		Activity:      adminauditsvc.NewService(auditSvc),
		RateLimiter:   limiter,
		Holidays:      calendar,
		Validator:     validation.New(),
		Observability: obs,
		Location:      loc,
		Now:           time.Now,
	}

	if err := container.ensureBootstrap(ctx, cfg.Bootstrap); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return container, nil
}

// Clock returns the container clock, defaulting to time.Now.
func (c *Container) Clock() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// ensureBootstrap upserts the configured admin accounts.
func (c *Container) ensureBootstrap(ctx context.Context, bootstrap config.BootstrapConfig) error {
	for _, admin := range bootstrap.AdminUsers {
		email := strings.TrimSpace(admin.Email)
		if email == "" {
			continue
		}
		user, err := c.Users.Upsert(ctx, adminusersvc.CreateParams{
			Email:      email,
			Name:       admin.Name,
			Role:       string(db.UserRoleAdmin),
			Department: admin.Department,
			Password:   admin.Password,
		})
		if err != nil {
			return fmt.Errorf("upsert admin %s: %w", email, err)
		}
		slog.Info("bootstrap admin ensured", slog.String("email", user.Email))
	}
	return nil
}
