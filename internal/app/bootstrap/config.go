// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/secureheaders"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey   = "dev-only-change-me-please-0123456789ABCDEF"
	devInviteSecret = "dev-only-invite-secret-change-me"
)

// appConfigKeys defines the configuration keys for StrataGRC.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATAGRC_MONGO_URI, STRATAGRC_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "strata_grc", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratagrc-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 24h, 30m)"},

	{Name: "app_origin", Default: "http://localhost:3000", Desc: "Public base URL; the only CORS origin for /api/auth"},
	{Name: "csp", Default: secureheaders.DefaultCSP, Desc: "Content-Security-Policy header"},

	// View cache
	{Name: "cache_backend", Default: "memory", Desc: "View cache backend: 'memory' or 'redis'"},
	{Name: "cache_ttl", Default: "5m", Desc: "Dashboard view cache TTL"},
	{Name: "cache_size", Default: 1024, Desc: "In-memory view cache entries"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address for the shared view cache"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Invitations
	{Name: "invite_secret", Default: devInviteSecret, Desc: "HMAC key for invitation tokens"},
	{Name: "invite_ttl", Default: "168h", Desc: "Invitation lifetime"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_data", Default: "all", Desc: "Record change logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_queue_size", Default: 1024, Desc: "Audit events buffered for the background writer"},

	// Login throttling
	{Name: "login_rate", Default: "0.2", Desc: "Login attempts per second allowed per client IP and per email"},
	{Name: "login_burst", Default: 5, Desc: "Login attempts allowed in a burst"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin user (promotes/creates on startup)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password when the superadmin has to be created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, STRATAGRC_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STRATAGRC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	loginRate, err := strconv.ParseFloat(appValues.String("login_rate"), 64)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("login_rate: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		AppOrigin: appValues.String("app_origin"),
		CSP:       appValues.String("csp"),

		CacheBackend:  appValues.String("cache_backend"),
		CacheTTL:      appValues.Duration("cache_ttl", 5*time.Minute),
		CacheSize:     appValues.Int("cache_size"),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		InviteSecret: appValues.String("invite_secret"),
		InviteTTL:    appValues.Duration("invite_ttl", 7*24*time.Hour),

		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogData:   appValues.String("audit_log_data"),
		AuditQueueSize: appValues.Int("audit_queue_size"),

		LoginRate:  loginRate,
		LoginBurst: appValues.Int("login_burst"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation. Errors abort
// startup before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateApp(coreCfg.Env, appCfg); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

func validateApp(env string, appCfg AppConfig) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if env == "prod" {
		if appCfg.SessionKey == devSessionKey || len(appCfg.SessionKey) < 32 {
			return fmt.Errorf("session_key must be set to at least 32 random characters in prod")
		}
		if appCfg.InviteSecret == devInviteSecret || len(appCfg.InviteSecret) < 32 {
			return fmt.Errorf("invite_secret must be set to at least 32 random characters in prod")
		}
	}

	switch appCfg.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache_backend must be 'memory' or 'redis', got %q", appCfg.CacheBackend)
	}

	u, err := url.Parse(appCfg.AppOrigin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
		return fmt.Errorf("app_origin must be an http(s) origin such as https://grc.example.com, got %q", appCfg.AppOrigin)
	}

	for name, mode := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_admin": appCfg.AuditLogAdmin,
		"audit_log_data":  appCfg.AuditLogData,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, mode)
		}
	}

	if appCfg.LoginRate <= 0 || appCfg.LoginBurst < 1 {
		return fmt.Errorf("login_rate must be positive and login_burst at least 1")
	}
	if appCfg.InviteTTL <= 0 {
		return fmt.Errorf("invite_ttl must be positive")
	}
	return nil
}
