package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/raveone/lms-api/pkg/calendar"
	"github.com/raveone/lms-api/pkg/grading"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Tracing       TracingConfig
	Calendar      CalendarConfig
	Grading       GradingConfig
	Notifications NotificationConfig
	Submissions   SubmissionsConfig
	Exams         ExamsConfig
	Sessions      SessionsConfig
	LegacyAPI     LegacyAPIConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	AutoMigrate     bool
	// ConnMaxLifetime bounds how long a pooled connection is reused.
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	ConnectBackoff  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds the material needed to verify upstream-issued tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig toggles OpenTelemetry span export.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	SampleRatio  float64
	OTLPEndpoint string
	OTLPInsecure bool
}

// CalendarConfig carries the parsed term/break pattern.
type CalendarConfig struct {
	Pattern calendar.Pattern
}

// GradingConfig carries component weights and the letter table.
type GradingConfig struct {
	Weights          grading.Weights
	Scale            grading.Scale
	TotalAssignments int
	CacheEnabled     bool
	CacheTTL         time.Duration
}

// NotificationConfig tunes the asynchronous notification dispatcher.
type NotificationConfig struct {
	Workers       int
	Retries       int
	RetryDelay    time.Duration
	ChannelPrefix string
}

// SubmissionsConfig controls where uploaded assignment files live.
type SubmissionsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
}

// ExamsConfig holds defaults stamped onto newly created exam slots.
type ExamsConfig struct {
	MeetingURLTemplate  string
	ProctorInstructions string
}

// LegacyAPIConfig gates the single-endpoint RPC route used by the old web client.
// SessionsConfig controls how live batch sessions are dated and joined.
type SessionsConfig struct {
	Location *time.Location
	JoinLead time.Duration
}

type LegacyAPIConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnectRetries:  v.GetInt("DB_CONNECT_RETRIES"),
		ConnectBackoff:  parseDuration(v.GetString("DB_CONNECT_BACKOFF"), 2*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		SampleRatio:  v.GetFloat64("OTEL_SAMPLER_RATIO"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
	}

	pattern, err := calendar.ParsePattern(v.GetString("CALENDAR_PATTERN"))
	if err != nil {
		return nil, fmt.Errorf("CALENDAR_PATTERN: %w", err)
	}
	cfg.Calendar = CalendarConfig{Pattern: pattern}

	weights := grading.Weights{Workbook: v.GetFloat64("WORKBOOK_WEIGHT"), Exam: v.GetFloat64("EXAM_WEIGHT")}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("WORKBOOK_WEIGHT/EXAM_WEIGHT: %w", err)
	}
	scale, err := grading.ParseScale(v.GetString("GRADE_BREAKPOINTS"), v.GetFloat64("PASSING_GRADE"))
	if err != nil {
		return nil, fmt.Errorf("GRADE_BREAKPOINTS: %w", err)
	}
	cfg.Grading = GradingConfig{
		Weights:          weights,
		Scale:            scale,
		TotalAssignments: v.GetInt("TOTAL_ASSIGNMENTS"),
		CacheEnabled:     v.GetBool("ENABLE_GRADE_CACHE"),
		CacheTTL:         parseDuration(v.GetString("GRADE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Workers:       v.GetInt("NOTIFY_WORKERS"),
		Retries:       v.GetInt("NOTIFY_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
		ChannelPrefix: v.GetString("NOTIFY_CHANNEL_PREFIX"),
	}

	maxUpload := v.GetInt64("SUBMISSIONS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Submissions = SubmissionsConfig{
		StorageDir:       v.GetString("SUBMISSIONS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("SUBMISSIONS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("SUBMISSIONS_SIGNED_URL_TTL"), 7*24*time.Hour),
		MaxFileSizeBytes: maxUpload,
	}

	cfg.Exams = ExamsConfig{
		MeetingURLTemplate:  v.GetString("EXAM_MEETING_URL"),
		ProctorInstructions: v.GetString("EXAM_PROCTOR_INSTRUCTIONS"),
	}

	location, err := time.LoadLocation(v.GetString("SESSIONS_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("SESSIONS_TIMEZONE: %w", err)
	}
	cfg.Sessions = SessionsConfig{
		Location: location,
		JoinLead: parseDuration(v.GetString("SESSIONS_JOIN_LEAD"), 10*time.Minute),
	}

	cfg.LegacyAPI = LegacyAPIConfig{Enabled: v.GetBool("ENABLE_LEGACY_DISPATCH")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "raveone_lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_CONNECT_BACKOFF", "2s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "lms-api")
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	v.SetDefault("CALENDAR_PATTERN", calendar.DefaultPattern().String())

	v.SetDefault("WORKBOOK_WEIGHT", 70)
	v.SetDefault("EXAM_WEIGHT", 30)
	v.SetDefault("PASSING_GRADE", grading.DefaultPassThreshold)
	v.SetDefault("GRADE_BREAKPOINTS", grading.DefaultBreakpoints)
	v.SetDefault("TOTAL_ASSIGNMENTS", 12)
	v.SetDefault("ENABLE_GRADE_CACHE", true)
	v.SetDefault("GRADE_CACHE_TTL", "5m")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFY_CHANNEL_PREFIX", "notifications")

	v.SetDefault("SUBMISSIONS_STORAGE_DIR", "./submissions")
	v.SetDefault("SUBMISSIONS_SIGNED_URL_SECRET", "dev_submissions_secret")
	v.SetDefault("SUBMISSIONS_SIGNED_URL_TTL", "168h")
	v.SetDefault("SUBMISSIONS_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("EXAM_MEETING_URL", "https://meet.google.com/new?authuser=0")
	v.SetDefault("EXAM_PROCTOR_INSTRUCTIONS", "Please have your identity card ready for verification.")

	v.SetDefault("SESSIONS_TIMEZONE", "UTC")
	v.SetDefault("SESSIONS_JOIN_LEAD", "10m")

	v.SetDefault("ENABLE_LEGACY_DISPATCH", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
