// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// the framework-level settings (ports, TLS, log level); everything
// specific to the GRC service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratagrc-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// AppOrigin is the public base URL. It is the only origin allowed to
	// call /api/auth cross-site and the prefix of invitation links.
	AppOrigin string
	CSP       string // Content-Security-Policy header value

	// View cache
	CacheBackend  string // "memory" or "redis"
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Invitations
	InviteSecret string        // HMAC key for invitation tokens
	InviteTTL    time.Duration // how long an invitation stays valid

	// Audit logging modes per category: all, db, log, off
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogData   string
	AuditQueueSize int

	// Login throttling (tokens per second, burst) per client IP and email
	LoginRate  float64
	LoginBurst int

	// Google OAuth (sign-in with Google is disabled when the client ID is blank)
	GoogleClientID     string
	GoogleClientSecret string

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string // only used when the account has to be created
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
