package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

type Config struct {
	Database    DatabaseConfig
	JWT         JWTConfig
	App         AppConfig
	Attendance  AttendanceConfig
	TimeTracker TimeTrackerConfig
	Sync        SyncConfig
	Telemetry   TelemetryConfig
	SQS         SQSConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST"     env-default:"localhost"`
	Port     int    `env:"DB_PORT"     env-default:"5432"`
	User     string `env:"DB_USER"     env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"     env-default:"hris_attendance"`
	SSLMode  string `env:"DB_SSL_MODE" env-default:"disable"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `env:"JWT_SECRET_KEY"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int           `env:"APP_PORT"             env-default:"8080"`
	Env             string        `env:"APP_ENV"              env-default:"development"`
	LogLevel        string        `env:"LOG_LEVEL"            env-default:"info"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"     env-default:"15s"`
}

type AttendanceConfig struct {
	// OrgUTCOffset is the organization's fixed offset, e.g. "+07:00".
	OrgUTCOffset string `env:"ORG_UTC_OFFSET" env-default:"+00:00"`
}

type TimeTrackerConfig struct {
	BaseURL   string        `env:"TIME_TRACKER_BASE_URL"`
	APIKey    string        `env:"TIME_TRACKER_API_KEY"`
	CompanyID string        `env:"TIME_TRACKER_COMPANY_ID"`
	Timeout   time.Duration `env:"TIME_TRACKER_TIMEOUT" env-default:"30s"`
}

type SyncConfig struct {
	Enabled        bool          `env:"SYNC_ENABLED"         env-default:"true"`
	Interval       time.Duration `env:"SYNC_INTERVAL"        env-default:"1h"`
	LookbackDays   int           `env:"SYNC_LOOKBACK_DAYS"   env-default:"1"`
	LookbackWindow time.Duration `env:"SYNC_LOOKBACK_WINDOW" env-default:"6h"`
}

type TelemetryConfig struct {
	ServiceName  string `env:"OTEL_SERVICE_NAME"            env-default:"hris-attendance"`
	Exporter     string `env:"OTEL_TRACES_EXPORTER"         env-default:"none"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"  env-default:"localhost:4317"`
}

type SQSConfig struct {
	QueueURL string `env:"SYNC_QUEUE_URL"`
	Region   string `env:"AWS_REGION"    env-default:"us-east-1"`
	Endpoint string `env:"AWS_ENDPOINT"`
}

// Load reads .env when present, then binds the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	config := &Config{}
	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if _, err := civiltime.ParseOffset(c.Attendance.OrgUTCOffset); err != nil {
		errs = append(errs, fmt.Errorf("ORG_UTC_OFFSET: %w", err))
	}

	if c.Sync.Enabled {
		if c.TimeTracker.BaseURL == "" {
			errs = append(errs, errors.New("TIME_TRACKER_BASE_URL is required when SYNC_ENABLED"))
		}
		if c.TimeTracker.APIKey == "" {
			errs = append(errs, errors.New("TIME_TRACKER_API_KEY is required when SYNC_ENABLED"))
		}
		if c.TimeTracker.CompanyID == "" {
			errs = append(errs, errors.New("TIME_TRACKER_COMPANY_ID is required when SYNC_ENABLED"))
		}
		if c.Sync.Interval <= 0 {
			errs = append(errs, errors.New("SYNC_INTERVAL must be positive"))
		}
		if c.Sync.LookbackDays < 0 {
			errs = append(errs, errors.New("SYNC_LOOKBACK_DAYS must not be negative"))
		}
	}

	switch strings.ToLower(c.Telemetry.Exporter) {
	case telemetry.ExporterOTLP, telemetry.ExporterStdout, telemetry.ExporterNone:
	default:
		errs = append(errs, fmt.Errorf("OTEL_TRACES_EXPORTER %q is not one of otlp, stdout, none", c.Telemetry.Exporter))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Normalizer builds the organization's time normalizer from ORG_UTC_OFFSET.
func (c *Config) Normalizer() (*civiltime.Normalizer, error) {
	return civiltime.NewNormalizerFromString(c.Attendance.OrgUTCOffset)
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		ServiceName:  c.Telemetry.ServiceName,
		Exporter:     strings.ToLower(c.Telemetry.Exporter),
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
	}
}
