package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, SOCIAL_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	BootstrapAdmin AdminBootstrap
}

// AdminBootstrap names an ADMIN account created at startup when absent.
type AdminBootstrap struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether all bootstrap fields are set.
func (b AdminBootstrap) Enabled() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("SOCIAL_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("SOCIAL_LOG_LEVEL", "info"),
		LogFormat: EnvString("SOCIAL_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("SOCIAL_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SOCIAL_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("SOCIAL_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("SOCIAL_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("SOCIAL_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("SOCIAL_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("SOCIAL_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("SOCIAL_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("SOCIAL_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("SOCIAL_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("SOCIAL_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvList("SOCIAL_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("SOCIAL_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("SOCIAL_CORS_MAX_AGE_SECONDS", 600),

		BootstrapAdmin: AdminBootstrap{
			Username: EnvString("SOCIAL_BOOTSTRAP_ADMIN_USERNAME", ""),
			Email:    EnvString("SOCIAL_BOOTSTRAP_ADMIN_EMAIL", ""),
			Password: EnvString("SOCIAL_BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}
}
