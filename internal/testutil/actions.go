package testutil

import (
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	"github.com/dalemusser/stratagrc/internal/app/system/invitetoken"
	"github.com/dalemusser/stratagrc/internal/app/system/seeding"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TestInviteSecret signs invitation tokens in tests.
const TestInviteSecret = "test-invite-secret-0123456789"

// NewActions returns Mongo-backed Actions with no audit log, cache or metrics.
func NewActions(t *testing.T, db *mongo.Database) *actions.Actions {
	t.Helper()
	logger := zap.NewNop()
	tokens, err := invitetoken.New(TestInviteSecret, 72*time.Hour)
	if err != nil {
		t.Fatalf("invitetoken.New: %v", err)
	}
	seeder := seeding.New(frameworkstore.New(db), controlstore.New(db), soastore.New(db), taskstore.New(db), nil, logger)
	return actions.New(actions.MongoStores(db), seeder, nil, nil, tokens, nil, logger)
}
