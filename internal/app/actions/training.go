package actions

import (
	"context"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// TrainingInput is the new training program form.
type TrainingInput struct {
	Title         string `validate:"required,max=200" label:"Title"`
	Description   string `validate:"max=5000" label:"Description"`
	Mandatory     bool
	FrequencyDays int `validate:"min=0,max=3650" label:"Frequency"`
}

// CreateTrainingProgram adds a training program.
func (a *Actions) CreateTrainingProgram(ctx context.Context, actor Actor, in TrainingInput) (Result, error) {
	const action = "training.create"

	trimAll(&in.Title, &in.Description)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}

	p, err := a.Training.CreateProgram(ctx, models.TrainingProgram{
		OrganizationID: actor.OrgID,
		Title:          in.Title,
		Description:    in.Description,
		Mandatory:      in.Mandatory,
		FrequencyDays:  in.FrequencyDays,
	})
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "training_program", p.ID, auditlog.Diff(nil, p))
}

// RecordCompletion marks a program completed by userID, who must be an
// active member. A blank userID means the actor. Completing again moves
// the completion date forward.
func (a *Actions) RecordCompletion(ctx context.Context, actor Actor, programID, userID string) (Result, error) {
	const action = "training.complete"

	pid, ok := parseID(programID)
	if !ok {
		return a.invalid(action, "Choose a training program.")
	}
	uid := actor.UserID
	if userID != "" {
		if uid, ok = parseID(userID); !ok {
			return a.invalid(action, "Choose a member.")
		}
	}

	if _, err := a.Training.GetProgram(ctx, actor.OrgID, pid); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That training program no longer exists.")
		}
		return a.fail(action, err)
	}
	if _, err := a.Memberships.GetActive(ctx, uid, actor.OrgID); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "Only active members can complete training.")
		}
		return a.fail(action, err)
	}

	c, err := a.Training.RecordCompletion(ctx, actor.OrgID, pid, uid, a.now())
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "training_completion", c.ID, map[string]string{
		"program_id": " → " + pid.Hex(),
		"user_id":    " → " + uid.Hex(),
	})
}

// DeleteTrainingProgram soft-deletes a program.
func (a *Actions) DeleteTrainingProgram(ctx context.Context, actor Actor, programID string) (Result, error) {
	const action = "training.delete"

	id, ok := parseID(programID)
	if !ok {
		return a.invalid(action, "Choose a training program.")
	}
	if err := a.Training.SoftDeleteProgram(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That training program no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "training_program", id, nil)
}
