// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/viewcache"
	"github.com/dalemusser/stratagrc/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook, so the components built in
// Startup live behind the Services pointer allocated in ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	*Services
}

// Services are the long-lived components shared by the handlers.
type Services struct {
	Metrics     *metrics.Metrics
	Cache       viewcache.Cache
	Redis       *viewcache.Redis // set when the cache backend is redis
	Audit       *auditlog.Logger
	Invitations *workers.InvitationExpiry
}
