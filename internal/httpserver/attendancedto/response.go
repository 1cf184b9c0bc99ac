package attendancedto

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/attendance/backend/internal/httpserver/httputil"
	"github.com/ncecere/attendance/backend/internal/limits"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
)

// Location is a geotagged point with its resolved address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Record is the API payload for an attendance row shared by /me and /admin routes.
type Record struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	UserEmail      string     `json:"user_email,omitempty"`
	UserName       string     `json:"user_name,omitempty"`
	Department     string     `json:"department,omitempty"`
	WorkDate       string     `json:"work_date"`
	CheckInAt      time.Time  `json:"check_in_at"`
	CheckOutAt     *time.Time `json:"check_out_at,omitempty"`
	Status         string     `json:"status"`
	CheckIn        *Location  `json:"check_in_location,omitempty"`
	CheckOut       *Location  `json:"check_out_location,omitempty"`
	Note           string     `json:"note,omitempty"`
	AutoClosed     bool       `json:"auto_closed"`
	WorkedMinutes  int64      `json:"worked_minutes"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FromRecord converts the service record into an API response.
func FromRecord(rec attendancesvc.Record) Record {
	resp := Record{
		ID:            rec.ID.String(),
		UserID:        rec.UserID.String(),
		UserEmail:     rec.UserEmail,
		UserName:      rec.UserName,
		Department:    rec.Department,
		WorkDate:      rec.WorkDate.Format("2006-01-02"),
		CheckInAt:     rec.CheckInAt,
		CheckOutAt:    rec.CheckOutAt,
		Status:        string(rec.Status),
		CheckIn:       location(rec.CheckInLat, rec.CheckInLng, rec.CheckInAddress),
		CheckOut:      location(rec.CheckOutLat, rec.CheckOutLng, rec.CheckOutAddress),
		Note:          rec.Note,
		AutoClosed:    rec.AutoClosed,
		WorkedMinutes: int64(rec.Worked() / time.Minute),
		UpdatedAt:     rec.UpdatedAt,
	}
	return resp
}

// FromRecords converts a slice, never returning nil.
func FromRecords(recs []attendancesvc.Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}

func location(lat, lng *float64, address string) *Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &Location{Lat: *lat, Lng: *lng, Address: address}
}

// WriteError maps attendance service errors onto HTTP statuses.
func WriteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, attendancesvc.ErrAlreadyCheckedIn),
		errors.Is(err, attendancesvc.ErrAlreadyCheckedOut):
		return httputil.WriteError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, attendancesvc.ErrNotCheckedIn),
		errors.Is(err, attendancesvc.ErrRecordNotFound),
		errors.Is(err, attendancesvc.ErrUserNotFound):
		return httputil.WriteError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, attendancesvc.ErrInvalidCoordinates),
		errors.Is(err, attendancesvc.ErrInvalidStatus),
		errors.Is(err, attendancesvc.ErrCheckOutBeforeStart):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, attendancesvc.ErrUserDisabled):
		return httputil.WriteError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, limits.ErrLimitExceeded):
		return httputil.WriteError(c, fiber.StatusTooManyRequests, "too many check-in attempts")
	case httputil.IsRangeError(err):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, attendancesvc.ErrServiceUnavailable):
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
}
