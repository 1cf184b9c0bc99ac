package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"gopkg.in/yaml.v3"

	"github.com/ncecere/attendance/backend/internal/auth"
	"github.com/ncecere/attendance/backend/internal/config"
	"github.com/ncecere/attendance/backend/internal/database"
	"github.com/ncecere/attendance/backend/internal/db"
	adminusersvc "github.com/ncecere/attendance/backend/internal/services/adminuser"
	attendancesvc "github.com/ncecere/attendance/backend/internal/services/attendance"
)

type fixture struct {
	Users      []fixtureUser       `yaml:"users"`
	Attendance []fixtureAttendance `yaml:"attendance"`
}

type fixtureUser struct {
	Email      string `yaml:"email"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Password   string `yaml:"password"`
}

// fixtureAttendance times are HH:MM in the attendance timezone.
type fixtureAttendance struct {
	Email    string `yaml:"email"`
	Date     string `yaml:"date"`
	CheckIn  string `yaml:"check_in"`
	CheckOut string `yaml:"check_out"`
	Status   string `yaml:"status"`
	Address  string `yaml:"address"`
	Note     string `yaml:"note"`
}

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	fixturePath := flag.String("fixture", "seed.yaml", "path to the seed fixture")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		log.Fatalf("read fixture: %v", err)
	}
	fx, err := parseFixture(raw)
	if err != nil {
		log.Fatalf("parse fixture: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	q := db.New(pool)
	authSvc, err := auth.NewService(ctx, cfg.Auth, q)
	if err != nil {
		log.Fatalf("init auth: %v", err)
	}
	users := adminusersvc.NewService(q, authSvc)

	ids := make(map[string]uuid.UUID, len(fx.Users))
	for _, u := range fx.Users {
		created, err := users.Upsert(ctx, adminusersvc.CreateParams{
			Email:      u.Email,
			Name:       u.Name,
			Role:       u.Role,
			Department: u.Department,
			Password:   u.Password,
		})
		if err != nil {
			log.Fatalf("upsert user %s: %v", u.Email, err)
		}
		ids[created.Email] = created.ID
		log.Printf("user %s (%s)", created.Email, created.Role)
	}

	for _, entry := range fx.Attendance {
		userID, ok := ids[strings.ToLower(strings.TrimSpace(entry.Email))]
		if !ok {
			log.Fatalf("attendance for unknown user %s", entry.Email)
		}
		params, err := buildAttendance(entry, userID, cfg.Attendance)
		if err != nil {
			log.Fatalf("attendance %s %s: %v", entry.Email, entry.Date, err)
		}
		if _, err := q.UpsertAttendanceRecord(ctx, params); err != nil {
			log.Fatalf("upsert attendance %s %s: %v", entry.Email, entry.Date, err)
		}
	}
	log.Printf("seeded %d users and %d attendance rows", len(fx.Users), len(fx.Attendance))
}

func parseFixture(raw []byte) (fixture, error) {
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fixture{}, err
	}
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Email) == "" {
			return fixture{}, fmt.Errorf("users[%d]: email is required", i)
		}
	}
	return fx, nil
}

// buildAttendance resolves a fixture row into upsert params. A missing status
// is classified from the check-in time like a live check-in.
func buildAttendance(entry fixtureAttendance, userID uuid.UUID, cfg config.AttendanceConfig) (db.UpsertAttendanceRecordParams, error) {
	loc := cfg.Location()
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(entry.Date), loc)
	if err != nil {
		return db.UpsertAttendanceRecordParams{}, fmt.Errorf("invalid date %q", entry.Date)
	}
	if strings.TrimSpace(entry.CheckIn) == "" {
		return db.UpsertAttendanceRecordParams{}, errors.New("check_in is required")
	}
	inOffset, err := config.ParseClock(entry.CheckIn)
	if err != nil {
		return db.UpsertAttendanceRecordParams{}, err
	}
	checkIn := day.Add(inOffset)

	params := db.UpsertAttendanceRecordParams{
		UserID:         pgtype.UUID{Bytes: userID, Valid: true},
		WorkDate:       pgtype.Date{Time: attendancesvc.WorkDate(checkIn, loc), Valid: true},
		CheckInAt:      pgtype.Timestamptz{Time: checkIn, Valid: true},
		CheckInAddress: strings.TrimSpace(entry.Address),
		Note:           strings.TrimSpace(entry.Note),
	}
	if strings.TrimSpace(entry.CheckOut) != "" {
		outOffset, err := config.ParseClock(entry.CheckOut)
		if err != nil {
			return db.UpsertAttendanceRecordParams{}, err
		}
		if outOffset < inOffset {
			return db.UpsertAttendanceRecordParams{}, attendancesvc.ErrCheckOutBeforeStart
		}
		params.CheckOutAt = pgtype.Timestamptz{Time: day.Add(outOffset), Valid: true}
	}

	if status := strings.ToLower(strings.TrimSpace(entry.Status)); status != "" {
		params.Status = db.AttendanceStatus(status)
		if !params.Status.Valid() {
			return db.UpsertAttendanceRecordParams{}, attendancesvc.ErrInvalidStatus
		}
	} else {
		params.Status = attendancesvc.ClassifyStatus(checkIn, cfg.WorkStartOffset(), cfg.LateGrace, loc)
	}
	return params, nil
}
