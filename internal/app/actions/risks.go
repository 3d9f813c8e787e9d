package actions

import (
	"context"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// RiskInput is the new risk form.
type RiskInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Description string `validate:"max=5000" label:"Description"`
	Category    string `validate:"max=100" label:"Category"`
	Likelihood  int    `validate:"min=1,max=5" label:"Likelihood"`
	Impact      int    `validate:"min=1,max=5" label:"Impact"`
	Treatment   string `validate:"omitempty,oneof=mitigate accept transfer avoid" label:"Treatment"`
	OwnerID     string `validate:"omitempty,objectid" label:"Owner"`
}

// CreateRisk adds a risk to the register. Score is likelihood × impact.
func (a *Actions) CreateRisk(ctx context.Context, actor Actor, in RiskInput) (Result, error) {
	const action = "risk.create"

	trimAll(&in.Title, &in.Description, &in.Category, &in.Treatment, &in.OwnerID)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	if in.Treatment == "" {
		in.Treatment = models.TreatmentMitigate
	}

	r, err := a.Risks.Create(ctx, models.Risk{
		OrganizationID: actor.OrgID,
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Likelihood:     in.Likelihood,
		Impact:         in.Impact,
		Score:          in.Likelihood * in.Impact,
		Treatment:      in.Treatment,
		Status:         models.RiskIdentified,
		OwnerID:        optionalID(in.OwnerID),
	})
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "risk", r.ID, auditlog.Diff(nil, r))
}

// TransitionRisk moves a risk to status. Accepting a risk records the
// accept treatment; a closed risk can only be reopened as identified.
func (a *Actions) TransitionRisk(ctx context.Context, actor Actor, riskID, status, treatment string) (Result, error) {
	const action = "risk.transition"

	trimAll(&riskID, &status, &treatment)
	id, ok := parseID(riskID)
	if !ok {
		return a.invalid(action, "Choose a risk.")
	}
	if !models.ValidRiskStatus(status) {
		return a.invalid(action, "Choose a valid risk status.")
	}
	if treatment != "" && !models.ValidTreatment(treatment) {
		return a.invalid(action, "Choose a valid treatment.")
	}

	before, err := a.Risks.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That risk no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if before.Status == status {
		return a.invalid(action, "The risk is already "+status+".")
	}
	if before.Status == models.RiskClosed && status != models.RiskIdentified {
		return a.invalid(action, "A closed risk can only be reopened as identified.")
	}
	if status == models.RiskAccepted {
		treatment = models.TreatmentAccept
	}

	if err := a.Risks.SetStatus(ctx, actor.OrgID, id, status, treatment); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That risk no longer exists.")
		}
		return a.fail(action, err)
	}
	after := before
	after.Status = status
	if treatment != "" {
		after.Treatment = treatment
	}
	return a.done(ctx, action, actor, "risk", id, auditlog.Diff(before, after))
}

// DeleteRisk soft-deletes a risk.
func (a *Actions) DeleteRisk(ctx context.Context, actor Actor, riskID string) (Result, error) {
	const action = "risk.delete"

	id, ok := parseID(riskID)
	if !ok {
		return a.invalid(action, "Choose a risk.")
	}
	if err := a.Risks.SoftDelete(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That risk no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "risk", id, nil)
}
