package httputil

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ncecere/attendance/backend/internal/timeutil"
)

// UserContext returns the request context, never nil.
func UserContext(c *fiber.Ctx) context.Context {
	if c == nil {
		return context.Background()
	}
	if uc := c.UserContext(); uc != nil {
		return uc
	}
	return context.Background()
}

// Pagination reads limit and offset query parameters. Invalid values fall
// back to the defaults; services clamp the upper bound.
func Pagination(c *fiber.Ctx, defaultLimit int32) (int32, int32) {
	limit := defaultLimit
	if val := strings.TrimSpace(c.Query("limit")); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 32); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}
	var offset int32
	if val := strings.TrimSpace(c.Query("offset")); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 32); err == nil && parsed >= 0 {
			offset = int32(parsed)
		}
	}
	return limit, offset
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return uuid.Nil, errors.New(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

// QueryUUID parses an optional query parameter as a UUID. Empty yields uuid.Nil.
func QueryUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

// RangeQuery holds the raw period selectors shared by listing, KPI and export endpoints.
type RangeQuery struct {
	Period string
	Start  string
	End    string
}

// ReadRangeQuery collects period, start and end from the query string.
func ReadRangeQuery(c *fiber.Ctx) RangeQuery {
	return RangeQuery{
		Period: strings.TrimSpace(c.Query("period")),
		Start:  strings.TrimSpace(c.Query("start")),
		End:    strings.TrimSpace(c.Query("end")),
	}
}

// Resolve parses the selectors against now.
func (q RangeQuery) Resolve(now time.Time) (timeutil.Range, timeutil.PeriodKind, error) {
	return timeutil.ParseRange(q.Period, q.Start, q.End, now)
}

// IsRangeError reports whether err came from parsing period selectors.
func IsRangeError(err error) bool {
	return errors.Is(err, timeutil.ErrInvalidPeriod) || errors.Is(err, timeutil.ErrInvalidRange)
}
