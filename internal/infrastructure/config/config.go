package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override (e.g. MAISGEN_DATABASE_PASSWORD)
const EnvPrefix = "MAISGEN"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Receipt      ReceiptConfig
	Registration RegistrationConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
	Swagger      SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// PublicURL is the externally visible base URL used in links sent by email
	PublicURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds settings for the administrator bearer tokens
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// AdminConfig holds the single administrator login.
// PasswordHash is a bcrypt hash; an empty hash disables login.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Submission limits are tighter than the global limit
	SubmitRateLimitRequests int
	SubmitRateLimitWindow   time.Duration
	CORSAllowOrigins        []string
	CORSAllowMethods        []string
	CORSAllowHeaders        []string
	TrustedProxies          []string
}

// StorageConfig holds blob storage settings
type StorageConfig struct {
	Driver            string // s3, local, memory
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	LocalPath         string
	LocalBaseURL      string
}

// ReceiptConfig controls how receipts are serialised
type ReceiptConfig struct {
	Timezone    string
	Compress    bool
	FontFamily  string
	FontRegular string // path to a TrueType file; empty uses Helvetica
	FontBold    string
}

// RegistrationConfig holds submission policy
type RegistrationConfig struct {
	Open           bool
	IdempotencyTTL time.Duration
}

// NotificationConfig holds the administrator email settings
type NotificationConfig struct {
	Enabled    bool
	SMTPHost   string
	SMTPPort   int
	Username   string
	Password   string
	From       string
	AdminEmail string
	TLSPolicy  string // mandatory, opportunistic, none
	Timeout    time.Duration
}

// SwaggerConfig controls the /swagger API documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // only administrators with a valid token
	AllowedIPs  []string // single addresses or CIDR ranges; empty allows all
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	LogExportEnabled  bool // Ship zap logs through the OTLP log exporter
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	ProfilingEnabled  bool
	PyroscopeAddress  string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MAISGEN_ prefix (e.g., MAISGEN_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans whose default is true cannot be told apart from an unset
	// value after loading, so they are declared up front.
	v.SetDefault("registration.open", true)
	v.SetDefault("receipt.compress", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("storage.use_path_style", true)

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			PublicURL: v.GetString("app.public_url"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("admin.username"),
			PasswordHash: v.GetString("admin.password_hash"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:             v.GetDuration("http.read_timeout"),
			WriteTimeout:            v.GetDuration("http.write_timeout"),
			IdleTimeout:             v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:          v.GetInt("http.max_header_bytes"),
			MaxBodySize:             v.GetInt64("http.max_body_size"),
			RateLimitEnabled:        v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:       v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:         v.GetDuration("http.rate_limit_window"),
			SubmitRateLimitRequests: v.GetInt("http.submit_rate_limit_requests"),
			SubmitRateLimitWindow:   v.GetDuration("http.submit_rate_limit_window"),
			CORSAllowOrigins:        v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:        v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:        v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:          v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			LocalPath:         v.GetString("storage.local_path"),
			LocalBaseURL:      v.GetString("storage.local_base_url"),
		},
		Receipt: ReceiptConfig{
			Timezone:    v.GetString("receipt.timezone"),
			Compress:    v.GetBool("receipt.compress"),
			FontFamily:  v.GetString("receipt.font_family"),
			FontRegular: v.GetString("receipt.font_regular"),
			FontBold:    v.GetString("receipt.font_bold"),
		},
		Registration: RegistrationConfig{
			Open:           v.GetBool("registration.open"),
			IdempotencyTTL: v.GetDuration("registration.idempotency_ttl"),
		},
		Notification: NotificationConfig{
			Enabled:    v.GetBool("notification.enabled"),
			SMTPHost:   v.GetString("notification.smtp_host"),
			SMTPPort:   v.GetInt("notification.smtp_port"),
			Username:   v.GetString("notification.username"),
			Password:   v.GetString("notification.password"),
			From:       v.GetString("notification.from"),
			AdminEmail: v.GetString("notification.admin_email"),
			TLSPolicy:  v.GetString("notification.tls_policy"),
			Timeout:    v.GetDuration("notification.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "maisgenetica-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "maisgenetica"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "maisgenetica.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 8 * time.Hour
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "maisgenetica-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		// one attachment of up to 1 MiB plus the form fields
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.SubmitRateLimitRequests == 0 {
		cfg.HTTP.SubmitRateLimitRequests = 5
	}
	if cfg.HTTP.SubmitRateLimitWindow == 0 {
		cfg.HTTP.SubmitRateLimitWindow = time.Minute
	}
	// CORS origins have no fallback: an empty list refuses cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "comprovantes"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "data/storage"
	}
	if cfg.Storage.LocalBaseURL == "" {
		cfg.Storage.LocalBaseURL = "/files"
	}
	if cfg.Receipt.Timezone == "" {
		cfg.Receipt.Timezone = "America/Fortaleza"
	}
	if cfg.Receipt.FontFamily == "" {
		cfg.Receipt.FontFamily = "ReceiptSans"
	}
	if cfg.Registration.IdempotencyTTL == 0 {
		cfg.Registration.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Notification.SMTPPort == 0 {
		cfg.Notification.SMTPPort = 587
	}
	if cfg.Notification.TLSPolicy == "" {
		cfg.Notification.TLSPolicy = "mandatory"
	}
	if cfg.Notification.Timeout == 0 {
		cfg.Notification.Timeout = 15 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required for the s3 driver")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("storage.driver must be s3, local or memory, got %q", c.Storage.Driver)
	}

	if c.Notification.Enabled {
		if c.Notification.SMTPHost == "" {
			return fmt.Errorf("notification.smtp_host is required when notifications are enabled")
		}
		if c.Notification.AdminEmail == "" || c.Notification.From == "" {
			return fmt.Errorf("notification.admin_email and notification.from are required when notifications are enabled")
		}
	}
	switch c.Notification.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("notification.tls_policy must be mandatory, opportunistic or none, got %q", c.Notification.TLSPolicy)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Admin.PasswordHash == "" {
			return fmt.Errorf("admin.password_hash is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		if c.Storage.Driver == "memory" {
			return fmt.Errorf("storage.driver=memory loses receipts on restart and is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production (CPF values would appear in traces)")
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
