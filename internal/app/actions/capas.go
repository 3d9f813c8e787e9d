package actions

import (
	"context"

	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// CAPAInput is the new corrective action form.
type CAPAInput struct {
	Title       string `validate:"required,max=200" label:"Title"`
	Kind        string `validate:"required,oneof=corrective preventive" label:"Kind"`
	Source      string `validate:"max=200" label:"Source"`
	Description string `validate:"max=5000" label:"Description"`
	OwnerID     string `validate:"omitempty,objectid" label:"Owner"`
	DueDate     string `label:"Due date"`
}

// CreateCAPA raises a corrective or preventive action.
func (a *Actions) CreateCAPA(ctx context.Context, actor Actor, in CAPAInput) (Result, error) {
	const action = "capa.create"

	trimAll(&in.Title, &in.Kind, &in.Source, &in.Description, &in.OwnerID, &in.DueDate)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}
	due, ok := parseDate(in.DueDate)
	if !ok {
		return a.invalid(action, "Due date must be a date.")
	}

	c, err := a.CAPAs.Create(ctx, models.CAPA{
		OrganizationID: actor.OrgID,
		Title:          in.Title,
		Kind:           in.Kind,
		Source:         in.Source,
		Description:    in.Description,
		Status:         models.CAPAOpen,
		OwnerID:        optionalID(in.OwnerID),
		DueDate:        due,
	})
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "capa", c.ID, auditlog.Diff(nil, c))
}

// TransitionCAPA moves a CAPA through its workflow. Closing requires a
// root cause, either already recorded or supplied now.
func (a *Actions) TransitionCAPA(ctx context.Context, actor Actor, capaID, status, rootCause string) (Result, error) {
	const action = "capa.transition"

	trimAll(&capaID, &status, &rootCause)
	id, ok := parseID(capaID)
	if !ok {
		return a.invalid(action, "Choose a corrective action.")
	}
	if !models.ValidCAPAStatus(status) {
		return a.invalid(action, "Choose a valid status.")
	}
	if len(rootCause) > 4000 {
		return a.invalid(action, "Root cause must be at most 4000 characters.")
	}

	before, err := a.CAPAs.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That corrective action no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if before.Status == status {
		return a.invalid(action, "The corrective action is already "+status+".")
	}
	if status == models.CAPAClosed && rootCause == "" && before.RootCause == "" {
		return a.invalid(action, "Record the root cause before closing.")
	}

	if err := a.CAPAs.Transition(ctx, actor.OrgID, id, status, rootCause); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That corrective action no longer exists.")
		}
		return a.fail(action, err)
	}
	after := before
	after.Status = status
	if rootCause != "" {
		after.RootCause = rootCause
	}
	return a.done(ctx, action, actor, "capa", id, auditlog.Diff(before, after))
}

// DeleteCAPA soft-deletes a corrective action.
func (a *Actions) DeleteCAPA(ctx context.Context, actor Actor, capaID string) (Result, error) {
	const action = "capa.delete"

	id, ok := parseID(capaID)
	if !ok {
		return a.invalid(action, "Choose a corrective action.")
	}
	if err := a.CAPAs.SoftDelete(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That corrective action no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "capa", id, nil)
}
