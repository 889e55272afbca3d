package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Session     SessionConfig
	Buffer      BufferConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Store       StoreConfig
	Outbox      OutboxConfig
	Notifier    NotifierConfig
	OCR         OCRConfig
	Recipes     RecipesConfig
	Admin       AdminConfig
	Media       MediaConfig
	RateLimit   RateLimitConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnablePprof   bool
	EnableMetrics bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// SessionConfig bounds session lifetimes. Refresh may ask for any TTL up to MaxTTL.
type SessionConfig struct {
	TTL    time.Duration
	MaxTTL time.Duration
}

type BufferConfig struct {
	Path           string
	MaxSize        int
	RetentionHours int
	SyncInterval   time.Duration
	MaxRetry       int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// StoreConfig selects the persistence backend: "postgres" (with Redis) or "memory".
type StoreConfig struct {
	Driver string
}

type OutboxConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Grace delays the relay's first attempt so the inline send after commit wins.
	Grace time.Duration
	Lease time.Duration
}

type NotifierConfig struct {
	URL     string
	Timeout time.Duration
}

type OCRConfig struct {
	URL     string
	Timeout time.Duration
}

type RecipesConfig struct {
	URL      string
	APIKey   string
	Number   int
	CacheTTL time.Duration
	Timeout  time.Duration
}

type AdminConfig struct {
	ConfirmSecret  string
	ResolveTimeout time.Duration
}

type MediaConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether Cloudinary credentials are configured.
func (m MediaConfig) Enabled() bool {
	return m.CloudName != "" && m.APIKey != "" && m.APISecret != ""
}

type RateLimitConfig struct {
	AuthPerSecond float64
	AuthBurst     int
}

// MailConfig configures the approval mail relay.
type MailConfig struct {
	Port      string
	Transport string
	APIURL    string
	APIKey    string
	From      string
	FromName  string
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	Timeout   time.Duration
}

// RelayConfig is the configuration of the mailrelay binary.
type RelayConfig struct {
	Environment string
	Logger      LoggerConfig
	Mail        MailConfig
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "greenbite"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnablePprof:   getBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", false),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "greenbite"),
			User:            getString("DB_USER", "greenbite"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "greenbite"),
		},
		Session: SessionConfig{
			TTL:    getDuration("SESSION_TTL", 24*time.Hour),
			MaxTTL: getDuration("SESSION_MAX_TTL", 30*24*time.Hour),
		},
		Buffer: BufferConfig{
			Path:           getString("BOLTDB_PATH", "./data/buffer.db"),
			MaxSize:        getInt("BUFFER_MAX_SIZE", 100_000),
			RetentionHours: getInt("BUFFER_RETENTION_HOURS", 24),
			SyncInterval:   getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
			MaxRetry:       getInt("MAX_RETRY_ATTEMPTS", 3),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getString("STORE_DRIVER", "postgres")),
		},
		Outbox: OutboxConfig{
			Interval:    getDuration("OUTBOX_INTERVAL", 15*time.Second),
			BatchSize:   getInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts: getInt("OUTBOX_MAX_ATTEMPTS", 8),
			BaseBackoff: getDuration("OUTBOX_BASE_BACKOFF", 30*time.Second),
			MaxBackoff:  getDuration("OUTBOX_MAX_BACKOFF", time.Hour),
			Grace:       getDuration("OUTBOX_GRACE", time.Minute),
			Lease:       getDuration("OUTBOX_LEASE", 2*time.Minute),
		},
		Notifier: NotifierConfig{
			URL:     strings.TrimRight(getString("NOTIFIER_URL", "http://localhost:5000"), "/"),
			Timeout: getDuration("NOTIFIER_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			URL:     strings.TrimRight(getString("OCR_URL", "http://localhost:5001"), "/"),
			Timeout: getDuration("OCR_TIMEOUT", 20*time.Second),
		},
		Recipes: RecipesConfig{
			URL:      strings.TrimRight(getString("RECIPES_API_URL", "https://api.spoonacular.com"), "/"),
			APIKey:   os.Getenv("RECIPES_API_KEY"),
			Number:   getInt("RECIPES_RESULT_COUNT", 5),
			CacheTTL: getDuration("RECIPES_CACHE_TTL", 30*time.Minute),
			Timeout:  getDuration("RECIPES_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			ConfirmSecret:  os.Getenv("ADMIN_CONFIRM_SECRET"),
			ResolveTimeout: getDuration("ROLE_RESOLVE_TIMEOUT", 2*time.Second),
		},
		Media: MediaConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getString("CLOUDINARY_FOLDER", "greenbite/food-items"),
		},
		RateLimit: RateLimitConfig{
			AuthPerSecond: getFloat("AUTH_RATE_PER_SECOND", 5),
			AuthBurst:     getInt("AUTH_RATE_BURST", 10),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRelay reads the mail relay configuration. The relay listens on PORT (default 5000).
func LoadRelay() (*RelayConfig, error) {
	_ = godotenv.Load(".env")

	cfg := &RelayConfig{
		Environment: getString("APP_ENV", "development"),
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Mail: MailConfig{
			Port:      getString("PORT", "5000"),
			Transport: strings.ToLower(getString("MAIL_TRANSPORT", "api")),
			APIURL:    getString("MAIL_API_URL", "https://api.zeptomail.com/v1.1/email"),
			APIKey:    os.Getenv("MAIL_API_KEY"),
			From:      getString("MAIL_FROM", os.Getenv("EMAIL_USER")),
			FromName:  getString("MAIL_FROM_NAME", "GreenBite"),
			SMTPHost:  getString("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:  getString("SMTP_PORT", "587"),
			SMTPUser:  os.Getenv("EMAIL_USER"),
			SMTPPass:  os.Getenv("EMAIL_PASS"),
			Timeout:   getDuration("MAIL_TIMEOUT", 15*time.Second),
		},
	}

	switch cfg.Mail.Transport {
	case "api", "smtp":
	default:
		return nil, fmt.Errorf("config: unknown MAIL_TRANSPORT %q", cfg.Mail.Transport)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" && c.Environment == "production" {
		return errors.New("config: JWT_SECRET is required in production")
	}
	if c.Session.TTL <= 0 || c.Session.MaxTTL < c.Session.TTL {
		return errors.New("config: SESSION_MAX_TTL must be at least SESSION_TTL")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return errors.New("config: OUTBOX_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

// UsesMemoryStore reports whether the in-process store replaces Postgres and Redis.
func (c *Config) UsesMemoryStore() bool {
	return c.Store.Driver == "memory"
}

// Address returns the relay listen address.
func (c *RelayConfig) Address() string {
	return ":" + c.Mail.Port
}
