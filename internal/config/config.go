package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/ncecere/attendance/backend/internal/timeutil"
)

// Config captures the runtime configuration for the attendance service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server" json:"server"`
	Database      DatabaseConfig      `mapstructure:"database" json:"database"`
	Redis         RedisConfig         `mapstructure:"redis" json:"redis"`
	Auth          AuthConfig          `mapstructure:"auth" json:"auth"`
	Geocoding     GeocodingConfig     `mapstructure:"geocoding" json:"geocoding"`
	Attendance    AttendanceConfig    `mapstructure:"attendance" json:"attendance"`
	Reports       ReportsConfig       `mapstructure:"reports" json:"reports"`
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap" json:"bootstrap"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr" json:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb" json:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay" json:"graceful_shutdown_delay"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url" json:"url"`
	RunMigrations   bool          `mapstructure:"run_migrations" json:"run_migrations"`
	MigrationsDir   string        `mapstructure:"migrations_dir" json:"migrations_dir"`
	MaxConns        int32         `mapstructure:"max_conns" json:"max_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`
	MinConns        int32         `mapstructure:"min_conns" json:"min_conns"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url" json:"url"`
	DB       int    `mapstructure:"db" json:"db"`
	PoolSize int    `mapstructure:"pool_size" json:"pool_size"`
}

type AuthConfig struct {
	Session SessionConfig   `mapstructure:"session" json:"session"`
	Local   LocalAuthConfig `mapstructure:"local" json:"local"`
	OIDC    OIDCConfig      `mapstructure:"oidc" json:"oidc"`
}

type SessionConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret" json:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl" json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" json:"refresh_token_ttl"`
	CookieName      string        `mapstructure:"cookie_name" json:"cookie_name"`
	CookieSecure    bool          `mapstructure:"cookie_secure" json:"cookie_secure"`
}

type LocalAuthConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type OIDCConfig struct {
	Enabled        bool          `mapstructure:"enabled" json:"enabled"`
	Issuer         string        `mapstructure:"issuer" json:"issuer"`
	ClientID       string        `mapstructure:"client_id" json:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret" json:"client_secret"`
	RedirectURL    string        `mapstructure:"redirect_url" json:"redirect_url"`
	Scopes         []string      `mapstructure:"scopes" json:"scopes"`
	AllowedDomains []string      `mapstructure:"allowed_domains" json:"allowed_domains"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout" json:"http_timeout"`
	RolesClaim     string        `mapstructure:"roles_claim" json:"roles_claim"`
	AdminRoles     []string      `mapstructure:"admin_roles" json:"admin_roles"`
	ManagerRoles   []string      `mapstructure:"manager_roles" json:"manager_roles"`
}

type GeocodingConfig struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	UserAgent string        `mapstructure:"user_agent" json:"user_agent"`
	Language  string        `mapstructure:"language" json:"language"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`
}

type AttendanceConfig struct {
	Timezone            string        `mapstructure:"timezone" json:"timezone"`
	WorkStart           string        `mapstructure:"work_start" json:"work_start"`
	WorkEnd             string        `mapstructure:"work_end" json:"work_end"`
	LateGrace           time.Duration `mapstructure:"late_grace" json:"late_grace"`
	CheckInsPerMinute   int           `mapstructure:"check_ins_per_minute" json:"check_ins_per_minute"`
	HolidaysFile        string        `mapstructure:"holidays_file" json:"holidays_file"`
	AutoCheckoutEnabled bool          `mapstructure:"auto_checkout_enabled" json:"auto_checkout_enabled"`
	AutoCheckoutCron    string        `mapstructure:"auto_checkout_cron" json:"auto_checkout_cron"`
	MaxRangeDays        int           `mapstructure:"max_range_days" json:"max_range_days"`
}

// Location returns the configured attendance timezone, falling back to UTC.
func (a AttendanceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(a.Timezone))
	if err != nil || strings.TrimSpace(a.Timezone) == "" {
		return time.UTC
	}
	return loc
}

// WorkStartOffset returns work_start as an offset from midnight.
func (a AttendanceConfig) WorkStartOffset() time.Duration {
	d, _ := ParseClock(a.WorkStart)
	return d
}

// WorkEndOffset returns work_end as an offset from midnight.
func (a AttendanceConfig) WorkEndOffset() time.Duration {
	d, _ := ParseClock(a.WorkEnd)
	return d
}

type ReportsConfig struct {
	Storage       string             `mapstructure:"storage" json:"storage"`
	EncryptionKey string             `mapstructure:"encryption_key" json:"encryption_key"`
	MaxRows       int                `mapstructure:"max_rows" json:"max_rows"`
	S3            ReportsS3Config    `mapstructure:"s3" json:"s3"`
	Local         ReportsLocalConfig `mapstructure:"local" json:"local"`
}

type ReportsS3Config struct {
	Bucket          string `mapstructure:"bucket" json:"bucket"`
	Prefix          string `mapstructure:"prefix" json:"prefix"`
	Region          string `mapstructure:"region" json:"region"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style" json:"use_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
}

type ReportsLocalConfig struct {
	Directory string `mapstructure:"directory" json:"directory"`
}

type ObservabilityConfig struct {
	OTLPEndpoint  string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp" json:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics" json:"enable_metrics"`
}

type BootstrapConfig struct {
	AdminUsers []BootstrapUser `mapstructure:"admin_users" json:"admin_users"`
}

type BootstrapUser struct {
	Email      string `mapstructure:"email" json:"email"`
	Name       string `mapstructure:"name" json:"name"`
	Password   string `mapstructure:"password" json:"password"`
	Department string `mapstructure:"department" json:"department"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("ATTENDANCE_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("attendance")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and normalizes defaults.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.URL == "" {
		missing = append(missing, "ATTENDANCE_DATABASE_URL")
	}
	if c.Redis.URL == "" {
		missing = append(missing, "ATTENDANCE_REDIS_URL")
	}
	if c.Auth.Session.JWTSecret == "" {
		missing = append(missing, "ATTENDANCE_AUTH_SESSION_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Database.RunMigrations && c.Database.MigrationsDir == "" {
		return fmt.Errorf("database.migrations_dir must be provided when run_migrations is true")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}

	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.Geocoding.validate(); err != nil {
		return err
	}
	if err := c.Attendance.validate(); err != nil {
		return err
	}
	if err := c.Reports.validate(); err != nil {
		return err
	}
	return c.Bootstrap.validate()
}

func (a *AuthConfig) validate() error {
	if a.Session.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.session.access_token_ttl must be > 0")
	}
	if a.Session.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.session.refresh_token_ttl must be > 0")
	}
	if a.Session.CookieName == "" {
		return fmt.Errorf("auth.session.cookie_name must be provided")
	}
	if !a.Local.Enabled && !a.OIDC.Enabled {
		return fmt.Errorf("at least one authentication method must be enabled (local or oidc)")
	}
	if a.OIDC.Enabled {
		if a.OIDC.Issuer == "" {
			return fmt.Errorf("auth.oidc.issuer must be provided when OIDC is enabled")
		}
		if a.OIDC.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id must be provided when OIDC is enabled")
		}
		if a.OIDC.ClientSecret == "" {
			return fmt.Errorf("auth.oidc.client_secret must be provided when OIDC is enabled")
		}
		if a.OIDC.RedirectURL == "" {
			return fmt.Errorf("auth.oidc.redirect_url must be provided when OIDC is enabled")
		}
		if a.OIDC.HTTPTimeout <= 0 {
			return fmt.Errorf("auth.oidc.http_timeout must be > 0")
		}
	}
	return nil
}

func (g *GeocodingConfig) validate() error {
	if !g.Enabled {
		return nil
	}
	if strings.TrimSpace(g.BaseURL) == "" {
		return fmt.Errorf("geocoding.base_url must be provided when geocoding is enabled")
	}
	if strings.TrimSpace(g.UserAgent) == "" {
		return fmt.Errorf("geocoding.user_agent must be provided when geocoding is enabled")
	}
	if g.Timeout <= 0 {
		g.Timeout = 5 * time.Second
	}
	if g.CacheTTL < 0 {
		return fmt.Errorf("geocoding.cache_ttl must be >= 0")
	}
	return nil
}

func (a *AttendanceConfig) validate() error {
	tz := strings.TrimSpace(a.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid attendance.timezone: %w", err)
	}
	a.Timezone = tz

	start, err := ParseClock(a.WorkStart)
	if err != nil {
		return fmt.Errorf("invalid attendance.work_start: %w", err)
	}
	end, err := ParseClock(a.WorkEnd)
	if err != nil {
		return fmt.Errorf("invalid attendance.work_end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("attendance.work_end must be after attendance.work_start")
	}
	if a.LateGrace < 0 {
		return fmt.Errorf("attendance.late_grace must be >= 0")
	}
	if a.CheckInsPerMinute < 0 {
		return fmt.Errorf("attendance.check_ins_per_minute must be >= 0")
	}
	if a.MaxRangeDays < 0 {
		return fmt.Errorf("attendance.max_range_days must be >= 0")
	}
	if a.MaxRangeDays == 0 {
		a.MaxRangeDays = timeutil.DefaultMaxRangeDays
	}
	if a.AutoCheckoutEnabled {
		if _, err := cron.ParseStandard(a.AutoCheckoutCron); err != nil {
			return fmt.Errorf("invalid attendance.auto_checkout_cron: %w", err)
		}
	}
	return nil
}

func (r *ReportsConfig) validate() error {
	storage := strings.ToLower(strings.TrimSpace(r.Storage))
	if storage == "" {
		storage = "local"
	}
	switch storage {
	case "local", "s3":
	default:
		return fmt.Errorf("reports.storage must be local or s3")
	}
	r.Storage = storage
	if storage == "s3" && strings.TrimSpace(r.S3.Bucket) == "" {
		return fmt.Errorf("reports.s3.bucket must be provided for s3 storage")
	}
	if r.MaxRows <= 0 {
		r.MaxRows = 50_000
	}
	return nil
}

func (b *BootstrapConfig) validate() error {
	for i, user := range b.AdminUsers {
		if strings.TrimSpace(user.Email) == "" {
			return fmt.Errorf("bootstrap.admin_users[%d].email must be provided", i)
		}
		if strings.TrimSpace(user.Name) == "" {
			return fmt.Errorf("bootstrap.admin_users[%d].name must be provided", i)
		}
		if strings.TrimSpace(user.Password) == "" {
			return fmt.Errorf("bootstrap.admin_users[%d].password must be provided", i)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 4)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.run_migrations", true)
	v.SetDefault("database.migrations_dir", "./migrations")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("auth.session.jwt_secret", "")
	v.SetDefault("auth.session.access_token_ttl", "15m")
	v.SetDefault("auth.session.refresh_token_ttl", "24h")
	v.SetDefault("auth.session.cookie_name", "attendance_session")
	v.SetDefault("auth.session.cookie_secure", true)
	v.SetDefault("auth.local.enabled", true)
	v.SetDefault("auth.oidc.enabled", false)
	v.SetDefault("auth.oidc.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("auth.oidc.http_timeout", "5s")

	v.SetDefault("geocoding.enabled", true)
	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "attendance-tracker/1.0")
	v.SetDefault("geocoding.language", "en")
	v.SetDefault("geocoding.timeout", "5s")
	v.SetDefault("geocoding.cache_ttl", "720h")

	v.SetDefault("attendance.timezone", "UTC")
	v.SetDefault("attendance.work_start", "09:00")
	v.SetDefault("attendance.work_end", "17:00")
	v.SetDefault("attendance.late_grace", "15m")
	v.SetDefault("attendance.check_ins_per_minute", 5)
	v.SetDefault("attendance.auto_checkout_enabled", true)
	v.SetDefault("attendance.auto_checkout_cron", "5 0 * * *")
	v.SetDefault("attendance.max_range_days", timeutil.DefaultMaxRangeDays)

	v.SetDefault("reports.storage", "local")
	v.SetDefault("reports.encryption_key", "")
	v.SetDefault("reports.max_rows", 50_000)
	v.SetDefault("reports.local.directory", "./data/reports")

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")
}

// ParseClock parses an "HH:MM" wall clock value into an offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Redacted returns a copy with secrets masked for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Auth.Session.JWTSecret = mask(c.Auth.Session.JWTSecret)
	c.Auth.OIDC.ClientSecret = mask(c.Auth.OIDC.ClientSecret)
	c.Reports.EncryptionKey = mask(c.Reports.EncryptionKey)
	c.Reports.S3.SecretAccessKey = mask(c.Reports.S3.SecretAccessKey)
	c.Database.URL = mask(c.Database.URL)
	c.Redis.URL = mask(c.Redis.URL)
	users := make([]BootstrapUser, len(c.Bootstrap.AdminUsers))
	for i, u := range c.Bootstrap.AdminUsers {
		u.Password = mask(u.Password)
		users[i] = u
	}
	c.Bootstrap.AdminUsers = users
	return c
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
