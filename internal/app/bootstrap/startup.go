// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/catalog"
	auditstore "github.com/dalemusser/stratagrc/internal/app/store/audit"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	invitationstore "github.com/dalemusser/stratagrc/internal/app/store/invitations"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/resources"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/authutil"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/app/system/viewcache"
	"github.com/dalemusser/stratagrc/internal/app/system/workers"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const invitationSweepInterval = 15 * time.Minute

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	resources.LoadSharedTemplates()

	deps.Metrics = metrics.New()

	if err := syncCatalog(ctx, deps, logger); err != nil {
		return err
	}

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
			return err
		}
	}

	switch appCfg.CacheBackend {
	case "redis":
		rc, err := viewcache.NewRedis(ctx, viewcache.RedisConfig{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
			TTL:      appCfg.CacheTTL,
		})
		if err != nil {
			logger.Error("redis view cache unavailable", zap.Error(err))
			return err
		}
		deps.Redis = rc
		deps.Cache = rc
	default:
		deps.Cache = viewcache.NewMemory(appCfg.CacheSize, appCfg.CacheTTL)
	}
	logger.Info("view cache ready", zap.String("backend", appCfg.CacheBackend), zap.Duration("ttl", appCfg.CacheTTL))

	deps.Audit = auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:      appCfg.AuditLogAuth,
		Admin:     appCfg.AuditLogAdmin,
		Data:      appCfg.AuditLogData,
		QueueSize: appCfg.AuditQueueSize,
	}, deps.Metrics)
	deps.Audit.Start()

	deps.Invitations = workers.NewInvitationExpiry(invitationstore.New(deps.MongoDatabase), logger, invitationSweepInterval)
	deps.Invitations.Start()

	return nil
}

func syncCatalog(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	cat, err := catalog.Load()
	if err != nil {
		logger.Error("framework catalog is invalid", zap.Error(err))
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()
	res, err := cat.Sync(ctx, frameworkstore.New(deps.MongoDatabase), logger)
	if err != nil {
		logger.Error("framework catalog sync failed", zap.Error(err))
		return err
	}
	logger.Info("framework catalog synced",
		zap.Int("frameworks", res.Frameworks),
		zap.Int("controls", res.Controls),
		zap.Int("tasks", res.Tasks))
	return nil
}

// ensureSuperAdmin promotes the user with email, creating the account when
// it does not exist. A created account gets password as its password, or
// signs in with Google when password is blank.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	users := userstore.New(deps.MongoDatabase)
	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsSuperAdmin {
			logger.Debug("superadmin already present", zap.String("email", u.Email))
			return nil
		}
		if err := users.SetSuperAdmin(ctx, u.ID, true); err != nil {
			return fmt.Errorf("promote superadmin: %w", err)
		}
		logger.Info("promoted existing user to superadmin", zap.String("email", u.Email))
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return fmt.Errorf("look up superadmin: %w", err)
	}

	nu := models.User{
		FullName:     "Super Admin",
		Email:        email,
		IsSuperAdmin: true,
		AuthMethod:   models.AuthMethodGoogle,
	}
	if password != "" {
		if err := authutil.ValidatePassword(password); err != nil {
			return fmt.Errorf("superadmin_password: %w", err)
		}
		hash, err := authutil.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash superadmin password: %w", err)
		}
		nu.AuthMethod = models.AuthMethodPassword
		nu.PasswordHash = hash
	}
	created, err := users.Create(ctx, nu)
	if err != nil {
		return fmt.Errorf("create superadmin: %w", err)
	}
	logger.Info("created superadmin user",
		zap.String("email", created.Email),
		zap.String("auth_method", created.AuthMethod))
	return nil
}
