package actions

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// AssessmentInput is the new assessment form.
type AssessmentInput struct {
	FrameworkID string `validate:"required,objectid" label:"Framework"`
	Title       string `validate:"required,max=200" label:"Title"`
}

// CreateAssessment starts an assessment and seeds its Statement of
// Applicability from the framework's controls.
func (a *Actions) CreateAssessment(ctx context.Context, actor Actor, in AssessmentInput) (Result, error) {
	const action = "assessment.create"

	trimAll(&in.FrameworkID, &in.Title)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	fwID, _ := parseID(in.FrameworkID)
	fw, err := a.Frameworks.GetByID(ctx, fwID)
	if isNotFound(err) {
		return a.invalid(action, "That framework is not in the catalog.")
	}
	if err != nil {
		return a.fail(action, err)
	}

	created, err := a.Assessments.Create(ctx, models.Assessment{
		OrganizationID: actor.OrgID,
		FrameworkID:    fw.ID,
		FrameworkCode:  fw.Code,
		Title:          in.Title,
		CreatedBy:      actor.UserID,
	})
	if err != nil {
		return a.fail(action, err)
	}

	seeded, err := a.seeder.SeedSoA(ctx, actor.OrgID, created.ID, fw.Code)
	if err != nil {
		return a.fail(action, err)
	}

	res, err := a.done(ctx, action, actor, "assessment", created.ID, auditlog.Diff(nil, created))
	res.Created = seeded.Created
	return res, err
}

// SoAInput is one Statement of Applicability decision.
type SoAInput struct {
	EntryID       string `validate:"required,objectid" label:"Entry"`
	Applicability string `validate:"required" label:"Applicability"`
	Justification string `validate:"max=2000" label:"Justification"`
}

// UpdateSoAEntry records whether a control applies. Exclusions need a
// justification, and completed assessments are frozen.
func (a *Actions) UpdateSoAEntry(ctx context.Context, actor Actor, in SoAInput) (Result, error) {
	const action = "soa.update"

	trimAll(&in.EntryID, &in.Applicability, &in.Justification)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	if !models.ValidApplicability(in.Applicability) {
		return a.invalid(action, "Choose applicable, excluded or undecided.")
	}
	if in.Applicability == models.SoAExcluded && in.Justification == "" {
		return a.invalid(action, "Justification is required when a control is excluded.")
	}

	id, _ := parseID(in.EntryID)
	before, err := a.SoA.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That entry no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	asmt, err := a.Assessments.Get(ctx, actor.OrgID, before.AssessmentID)
	if isNotFound(err) {
		return a.invalid(action, "That assessment no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if asmt.Status == models.AssessmentCompleted {
		return a.invalid(action, "Completed assessments cannot be changed.")
	}

	if err := a.SoA.Update(ctx, actor.OrgID, id, in.Applicability, in.Justification); err != nil {
		return a.fail(action, err)
	}
	after := before
	after.Applicability, after.Justification = in.Applicability, in.Justification
	return a.done(ctx, action, actor, "soa_entry", id, auditlog.Diff(before, after))
}

// CompleteAssessment freezes an assessment and records its score. Every
// entry must be decided first.
func (a *Actions) CompleteAssessment(ctx context.Context, actor Actor, assessmentID string) (Result, error) {
	const action = "assessment.complete"

	id, ok := parseID(assessmentID)
	if !ok {
		return a.invalid(action, "Choose an assessment.")
	}
	asmt, err := a.Assessments.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That assessment no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if asmt.Status == models.AssessmentCompleted {
		return a.invalid(action, "This assessment is already complete.")
	}

	score, undecided, err := a.Scorer.Score(ctx, actor.OrgID, id)
	if err != nil {
		return a.fail(action, err)
	}
	if undecided > 0 {
		return a.invalid(action, fmt.Sprintf("%d controls are still undecided.", undecided))
	}

	if err := a.Assessments.Complete(ctx, actor.OrgID, id, score); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "This assessment is already complete.")
		}
		return a.fail(action, err)
	}
	diff := map[string]string{
		"status": asmt.Status + " → " + models.AssessmentCompleted,
		"score":  fmt.Sprintf(" → %d", score),
	}
	return a.done(ctx, action, actor, "assessment", id, diff)
}
