package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all configuration for our application
type Config struct {
	Port          string
	Origin        string
	Environment   string
	LogLevel      string
	PublicBaseURL string
	Timezone      string

	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int

	Database DatabaseConfig
	Mailer   MailerConfig
	Clinic   ClinicConfig
	Redis    RedisConfig
	Storage  StorageConfig
	AWS      AWSConfig
	Tracing  TracingConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	Verbose  bool
	DSN      string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	Transport      string // sendgrid, ses or stub
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ClinicInbox    string
}

// ClinicConfig is the branding printed in patient emails.
type ClinicConfig struct {
	Name       string
	Phone      string
	Address    string
	Hours      string
	DoctorName string
}

// RedisConfig points at the tracking-code cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// StorageConfig is the S3 bucket report documents are uploaded to. Empty Bucket disables uploads.
type StorageConfig struct {
	Bucket        string
	PublicBaseURL string
	MaxUploadMB   int
}

// AWSConfig is shared by the SES and S3 clients.
type AWSConfig struct {
	Region string
}

// TracingConfig selects where OpenTelemetry spans go.
type TracingConfig struct {
	Exporter    string // none, stdout or otlp
	Endpoint    string // host:port of an OTLP/HTTP collector
	Insecure    bool
	SampleRatio float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "dental_clinic"),
		Verbose:  getEnvBool("DB_VERBOSE", false),
	}
	dbConfig.DSN = buildDSN(dbConfig)

	mailerConfig := MailerConfig{
		Transport:      strings.ToLower(getEnv("MAILER_TRANSPORT", "stub")),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		FromEmail:      getEnv("MAILER_DEFAULT_FROM", "no-reply@localhost"),
		FromName:       getEnv("MAILER_FROM_NAME", ""),
		ClinicInbox:    getEnv("CLINIC_INBOX", ""),
	}
	switch mailerConfig.Transport {
	case "sendgrid", "ses", "stub":
	default:
		return nil, fmt.Errorf("invalid MAILER_TRANSPORT %q: want sendgrid, ses or stub", mailerConfig.Transport)
	}

	clinicConfig := ClinicConfig{
		Name:       getEnv("CLINIC_NAME", ""),
		Phone:      getEnv("CLINIC_PHONE", ""),
		Address:    getEnv("CLINIC_ADDRESS", ""),
		Hours:      getEnv("CLINIC_HOURS", ""),
		DoctorName: getEnv("CLINIC_DOCTOR_NAME", ""),
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		TLS:      getEnvBool("REDIS_TLS", false),
	}

	maxUploadMB, err := strconv.Atoi(getEnv("UPLOAD_MAX_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_MB: %w", err)
	}
	storageConfig := StorageConfig{
		Bucket:        getEnv("S3_BUCKET", ""),
		PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		MaxUploadMB:   maxUploadMB,
	}

	sampleRatio, err := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64)
	if err != nil || sampleRatio < 0 || sampleRatio > 1 {
		return nil, fmt.Errorf("invalid TRACE_SAMPLE_RATIO %q: want a number between 0 and 1", getEnv("TRACE_SAMPLE_RATIO", "1"))
	}
	tracingConfig := TracingConfig{
		Exporter:    strings.ToLower(getEnv("TRACING_EXPORTER", "none")),
		Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio: sampleRatio,
	}
	switch tracingConfig.Exporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("invalid TRACING_EXPORTER %q: want none, stdout or otlp", tracingConfig.Exporter)
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:3000"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:             getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		Timezone:                  getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Mailer:                    mailerConfig,
		Clinic:                    clinicConfig,
		Redis:                     redisConfig,
		Storage:                   storageConfig,
		AWS:                       AWSConfig{Region: getEnv("AWS_REGION", "ap-south-1")},
		Tracing:                   tracingConfig,
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location is the clinic time zone appointment dates are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func buildDSN(db DatabaseConfig) string {
	dsn := mysql.NewConfig()
	dsn.User = db.Username
	dsn.Passwd = db.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(db.Host, db.Port)
	dsn.DBName = db.Name
	dsn.ParseTime = true
	dsn.Loc = time.Local
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}
