package actions

import (
	"context"
	"errors"
	"strings"

	evidencestore "github.com/dalemusser/stratagrc/internal/app/store/evidence"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/google/uuid"
)

// EvidenceInput is the new evidence form.
type EvidenceInput struct {
	Title            string `validate:"required,max=200" label:"Title"`
	Description      string `validate:"max=5000" label:"Description"`
	URL              string `validate:"omitempty,httpurl,max=2000" label:"Link"`
	ImplementationID string `validate:"omitempty,objectid" label:"Control"`
}

// referenceAttempts bounds retries on the (unlikely) reference collision.
const referenceAttempts = 3

// NewReference returns a short evidence code such as "EV-1A2B3C4D".
func NewReference() string {
	return "EV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateEvidence records an audit artifact, optionally linked to one of
// the organization's control implementations.
func (a *Actions) CreateEvidence(ctx context.Context, actor Actor, in EvidenceInput) (Result, error) {
	const action = "evidence.create"

	trimAll(&in.Title, &in.Description, &in.URL, &in.ImplementationID)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}

	implID := optionalID(in.ImplementationID)
	if implID != nil {
		if _, err := a.Controls.Get(ctx, actor.OrgID, *implID); err != nil {
			if isNotFound(err) {
				return a.invalid(action, "That control is not part of this organization.")
			}
			return a.fail(action, err)
		}
	}

	e := models.Evidence{
		OrganizationID:   actor.OrgID,
		Title:            in.Title,
		Description:      in.Description,
		URL:              in.URL,
		ImplementationID: implID,
		CollectedBy:      actor.UserID,
	}
	var created models.Evidence
	var err error
	for i := 0; i < referenceAttempts; i++ {
		e.Reference = NewReference()
		created, err = a.Evidence.Create(ctx, e)
		if !errors.Is(err, evidencestore.ErrDuplicateReference) {
			break
		}
	}
	if err != nil {
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "evidence", created.ID, auditlog.Diff(nil, created))
}

// DeleteEvidence soft-deletes an evidence record.
func (a *Actions) DeleteEvidence(ctx context.Context, actor Actor, evidenceID string) (Result, error) {
	const action = "evidence.delete"

	id, ok := parseID(evidenceID)
	if !ok {
		return a.invalid(action, "Choose an evidence record.")
	}
	if err := a.Evidence.SoftDelete(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That evidence no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "evidence", id, nil)
}
