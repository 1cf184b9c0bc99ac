package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{URL: "postgres://localhost/attendance", MigrationsDir: "./migrations", RunMigrations: true},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Auth: AuthConfig{
			Session: SessionConfig{
				JWTSecret:       "secret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 24 * time.Hour,
				CookieName:      "attendance_session",
			},
			Local: LocalAuthConfig{Enabled: true},
		},
		Attendance: AttendanceConfig{
			Timezone:         "Europe/Paris",
			WorkStart:        "09:00",
			WorkEnd:          "17:30",
			LateGrace:        10 * time.Minute,
			AutoCheckoutCron: "5 0 * * *",
		},
	}
}

func TestValidateNormalizesDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "local", cfg.Reports.Storage)
	require.Equal(t, 50_000, cfg.Reports.MaxRows)
	require.Equal(t, 366, cfg.Attendance.MaxRangeDays)
	require.Equal(t, 9*time.Hour, cfg.Attendance.WorkStartOffset())
	require.Equal(t, 17*time.Hour+30*time.Minute, cfg.Attendance.WorkEndOffset())
	require.Equal(t, "Europe/Paris", cfg.Attendance.Location().String())
}

func TestValidateMissingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	cfg.Auth.Session.JWTSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ATTENDANCE_DATABASE_URL")
	require.Contains(t, err.Error(), "ATTENDANCE_AUTH_SESSION_JWT_SECRET")
}

func TestValidateRejectsBadAttendanceSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "timezone", mutate: func(c *Config) { c.Attendance.Timezone = "Mars/Olympus" }},
		{name: "work start", mutate: func(c *Config) { c.Attendance.WorkStart = "9am" }},
		{name: "work end before start", mutate: func(c *Config) { c.Attendance.WorkEnd = "08:00" }},
		{name: "max range days", mutate: func(c *Config) { c.Attendance.MaxRangeDays = -1 }},
		{name: "cron", mutate: func(c *Config) {
			c.Attendance.AutoCheckoutEnabled = true
			c.Attendance.AutoCheckoutCron = "every night"
		}},
		{name: "reports storage", mutate: func(c *Config) { c.Reports.Storage = "ftp" }},
		{name: "s3 bucket", mutate: func(c *Config) { c.Reports.Storage = "s3" }},
		{name: "no auth", mutate: func(c *Config) { c.Auth.Local.Enabled = false }},
		{name: "geocoding agent", mutate: func(c *Config) {
			c.Geocoding.Enabled = true
			c.Geocoding.BaseURL = "https://geo.example"
		}},
		{name: "bootstrap password", mutate: func(c *Config) {
			c.Bootstrap.AdminUsers = []BootstrapUser{{Email: "a@example.com", Name: "A"}}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock(" 08:45 ")
	require.NoError(t, err)
	require.Equal(t, 8*time.Hour+45*time.Minute, d)

	_, err = ParseClock("25:00")
	require.Error(t, err)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attendance.yaml")
	body := []byte(`
database:
  url: postgres://db/attendance
redis:
  url: redis://cache:6379/1
attendance:
  timezone: Africa/Nairobi
  late_grace: 20m
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("ATTENDANCE_AUTH_SESSION_JWT_SECRET", "from-env")

	cfg, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	require.Equal(t, "postgres://db/attendance", cfg.Database.URL)
	require.Equal(t, "from-env", cfg.Auth.Session.JWTSecret)
	require.Equal(t, 20*time.Minute, cfg.Attendance.LateGrace)
	require.Equal(t, "09:00", cfg.Attendance.WorkStart)
	require.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Bootstrap.AdminUsers = []BootstrapUser{{Email: "a@example.com", Password: "pw"}}
	red := cfg.Redacted()
	require.Equal(t, "********", red.Auth.Session.JWTSecret)
	require.Equal(t, "********", red.Bootstrap.AdminUsers[0].Password)
	require.Equal(t, "pw", cfg.Bootstrap.AdminUsers[0].Password)
}
