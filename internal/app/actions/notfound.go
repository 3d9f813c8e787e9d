package actions

import (
	"errors"

	assessmentstore "github.com/dalemusser/stratagrc/internal/app/store/assessments"
	capastore "github.com/dalemusser/stratagrc/internal/app/store/capas"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	evidencestore "github.com/dalemusser/stratagrc/internal/app/store/evidence"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	invitationstore "github.com/dalemusser/stratagrc/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	riskstore "github.com/dalemusser/stratagrc/internal/app/store/risks"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	trainingstore "github.com/dalemusser/stratagrc/internal/app/store/training"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
)

var notFound = []error{
	assessmentstore.ErrNotFound,
	capastore.ErrNotFound,
	controlstore.ErrNotFound,
	documentstore.ErrNotFound,
	evidencestore.ErrNotFound,
	frameworkstore.ErrNotFound,
	invitationstore.ErrNotFound,
	membershipstore.ErrNotFound,
	organizationstore.ErrNotFound,
	riskstore.ErrNotFound,
	soastore.ErrNotFound,
	taskstore.ErrNotFound,
	trainingstore.ErrNotFound,
	userstore.ErrNotFound,
}

// isNotFound reports whether err is any store's not-found sentinel. Those
// are user-facing outcomes (stale link, record deleted meanwhile), not
// failures.
func isNotFound(err error) bool {
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			return true
		}
	}
	return false
}
