package actions

import (
	"net/http"

	"github.com/dalemusser/stratagrc/internal/app/system/auth"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActorFromRequest builds the Actor for an org-scoped request. ok is false
// when the tenant gate did not run or there is no signed-in user.
func ActorFromRequest(r *http.Request) (Actor, bool) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		return Actor{}, false
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, false
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Actor{}, false
	}
	return Actor{UserID: uid, OrgID: t.Org.ID, Role: t.Role()}, true
}
