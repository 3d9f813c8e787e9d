package actions

import (
	"context"

	assessmentstore "github.com/dalemusser/stratagrc/internal/app/store/assessments"
	capastore "github.com/dalemusser/stratagrc/internal/app/store/capas"
	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	evidencestore "github.com/dalemusser/stratagrc/internal/app/store/evidence"
	frameworkstore "github.com/dalemusser/stratagrc/internal/app/store/frameworks"
	invitationstore "github.com/dalemusser/stratagrc/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/stratagrc/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/stratagrc/internal/app/store/organizations"
	"github.com/dalemusser/stratagrc/internal/app/store/queries/soaqueries"
	riskstore "github.com/dalemusser/stratagrc/internal/app/store/risks"
	soastore "github.com/dalemusser/stratagrc/internal/app/store/soa"
	taskstore "github.com/dalemusser/stratagrc/internal/app/store/tasks"
	trainingstore "github.com/dalemusser/stratagrc/internal/app/store/training"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStores returns the Mongo-backed implementation of every store.
func MongoStores(db *mongo.Database) Stores {
	return Stores{
		Frameworks:    frameworkstore.New(db),
		Controls:      controlstore.New(db),
		Assessments:   assessmentstore.New(db),
		SoA:           soastore.New(db),
		Scorer:        soaScorer{db: db},
		Risks:         riskstore.New(db),
		Tasks:         taskstore.New(db),
		CAPAs:         capastore.New(db),
		Documents:     documentstore.New(db),
		Evidence:      evidencestore.New(db),
		Training:      trainingstore.New(db),
		Users:         userstore.New(db),
		Organizations: organizationstore.New(db),
		Memberships:   membershipstore.New(db),
		Invitations:   invitationstore.New(db),
	}
}

// soaScorer scores an assessment from its Statement of Applicability.
type soaScorer struct {
	db *mongo.Database
}

func (s soaScorer) Score(ctx context.Context, orgID, assessmentID primitive.ObjectID) (int, int, error) {
	st, err := soaqueries.ForAssessment(ctx, s.db, orgID, assessmentID)
	if err != nil {
		return 0, 0, err
	}
	return st.Score, st.Undecided, nil
}
