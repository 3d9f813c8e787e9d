package actions

import (
	"context"

	controlstore "github.com/dalemusser/stratagrc/internal/app/store/controls"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"go.uber.org/zap"
)

// ActivateFramework materializes a framework's controls and certification
// tasks for the actor's organization. Running it again only fills gaps.
func (a *Actions) ActivateFramework(ctx context.Context, actor Actor, frameworkID string) (Result, error) {
	const action = "framework.activate"

	fwID, ok := parseID(frameworkID)
	if !ok {
		return a.invalid(action, "Choose a framework to activate.")
	}
	fw, err := a.Frameworks.GetByID(ctx, fwID)
	if isNotFound(err) {
		return a.invalid(action, "That framework is not in the catalog.")
	}
	if err != nil {
		return a.fail(action, err)
	}

	controls, err := a.seeder.SeedControls(ctx, actor.OrgID, fw.ID)
	if err != nil {
		return a.fail(action, err)
	}
	tasks, err := a.seeder.SeedCertificationTasks(ctx, actor.OrgID, fw.ID)
	if err != nil {
		return a.fail(action, err)
	}

	a.log.Info("framework activated",
		zap.String("org_id", actor.OrgID.Hex()),
		zap.String("framework", fw.Code),
		zap.Int("controls_created", controls.Created),
		zap.Int("tasks_created", tasks.Created))

	res, err := a.done(ctx, action, actor, "framework", fw.ID, nil)
	res.Created = controls.Created + tasks.Created
	return res, err
}

// ControlInput is the control implementation edit form.
type ControlInput struct {
	ImplementationID string `validate:"required,objectid" label:"Control"`
	Status           string `validate:"required" label:"Status"`
	Effectiveness    string `validate:"required" label:"Effectiveness"`
	Notes            string `validate:"max=4000" label:"Notes"`
	OwnerID          string `validate:"omitempty,objectid" label:"Owner"`
}

// UpdateControlStatus records implementation progress for one control.
func (a *Actions) UpdateControlStatus(ctx context.Context, actor Actor, in ControlInput) (Result, error) {
	const action = "control.update"

	trimAll(&in.ImplementationID, &in.Status, &in.Effectiveness, &in.Notes, &in.OwnerID)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	if !models.ValidControlStatus(in.Status) {
		return a.invalid(action, "Choose a valid control status.")
	}
	if !models.ValidEffectiveness(in.Effectiveness) {
		return a.invalid(action, "Choose a valid effectiveness rating.")
	}
	if in.Status == models.ControlNotStarted && in.Effectiveness != models.EffectivenessUnassessed {
		return a.invalid(action, "A control that has not been started cannot be rated.")
	}

	id, _ := parseID(in.ImplementationID)
	before, err := a.Controls.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That control no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}

	u := controlstore.Update{
		Status:        in.Status,
		Effectiveness: in.Effectiveness,
		Notes:         in.Notes,
		OwnerID:       optionalID(in.OwnerID),
	}
	if err := a.Controls.Update(ctx, actor.OrgID, id, u); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That control no longer exists.")
		}
		return a.fail(action, err)
	}

	after := before
	after.Status, after.Effectiveness, after.Notes, after.OwnerID = u.Status, u.Effectiveness, u.Notes, u.OwnerID
	return a.done(ctx, action, actor, "control_implementation", id, auditlog.Diff(before, after))
}
