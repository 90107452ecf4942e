package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy    bool
	MaxBodyBytes  int64
	LoginIPMax    int
	LoginIPWindow time.Duration

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// RefreshTTL sets the cookie Max-Age. It mirrors session.Config.RefreshTTL.
	RefreshTTL time.Duration
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20, // 1 MiB
		LoginIPMax:     20,
		LoginIPWindow:  5 * time.Minute,
		CookieName:     RefreshCookieName,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteStrictMode,
		RefreshTTL:     7 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
// refreshTTL comes from the session config so cookie and row expire together.
func LoadConfigFromEnv(refreshTTL time.Duration) Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:     envBool("SOCIAL_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:   envInt64("SOCIAL_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		LoginIPMax:     envInt("SOCIAL_AUTH_LOGIN_IP_MAX", def.LoginIPMax),
		LoginIPWindow:  envDuration("SOCIAL_AUTH_LOGIN_IP_WINDOW", def.LoginIPWindow),
		CookieName:     def.CookieName,
		CookiePath:     def.CookiePath,
		CookieDomain:   strings.TrimSpace(os.Getenv("SOCIAL_AUTH_COOKIE_DOMAIN")),
		CookieSecure:   envBool("SOCIAL_AUTH_COOKIE_SECURE", def.CookieSecure),
		CookieSameSite: parseSameSite(os.Getenv("SOCIAL_AUTH_COOKIE_SAMESITE"), def.CookieSameSite),
		RefreshTTL:     refreshTTL,
	}
	return cfg.normalized()
}

// normalized clamps values that would make the adapter unsafe or inert.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.LoginIPWindow <= 0 {
		c.LoginIPWindow = def.LoginIPWindow
	}
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = def.CookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = def.RefreshTTL
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if c.CookieSameSite == http.SameSiteNoneMode {
		c.CookieSecure = true
	}
	return c
}

func parseSameSite(raw string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return def
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
