package actions

import (
	"context"

	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratagrc/internal/domain/models"
)

// DocumentInput is the new document form. Body may contain rich text.
type DocumentInput struct {
	Title string `validate:"required,max=200" label:"Title"`
	Kind  string `validate:"required,oneof=policy procedure record" label:"Kind"`
	Body  string `validate:"max=200000" label:"Body"`
}

// CreateDocument stores a draft. The body is sanitized before it is
// written.
func (a *Actions) CreateDocument(ctx context.Context, actor Actor, in DocumentInput) (Result, error) {
	const action = "document.create"

	trimAll(&in.Title, &in.Kind, &in.Body)
	if res, ok := a.validate(action, in); !ok {
		return res, nil
	}

	d, err := a.Documents.Create(ctx, models.Document{
		OrganizationID: actor.OrgID,
		Title:          in.Title,
		Kind:           in.Kind,
		Body:           htmlsanitize.Sanitize(in.Body),
		Status:         models.DocumentDraft,
		Version:        1,
	})
	if err != nil {
		return a.fail(action, err)
	}
	d.Body = ""
	return a.done(ctx, action, actor, "document", d.ID, auditlog.Diff(nil, d))
}

// TransitionDocument moves a document along draft → in_review → approved
// → archived. Re-approving a previously approved document bumps its
// version.
func (a *Actions) TransitionDocument(ctx context.Context, actor Actor, documentID, to string) (Result, error) {
	const action = "document.transition"

	trimAll(&documentID, &to)
	id, ok := parseID(documentID)
	if !ok {
		return a.invalid(action, "Choose a document.")
	}

	before, err := a.Documents.Get(ctx, actor.OrgID, id)
	if isNotFound(err) {
		return a.invalid(action, "That document no longer exists.")
	}
	if err != nil {
		return a.fail(action, err)
	}
	if !models.CanTransitionDocument(before.Status, to) {
		return a.invalid(action, "A "+before.Status+" document cannot move to "+to+".")
	}

	t := documentstore.Transition{From: before.Status, To: to, Version: before.Version}
	if to == models.DocumentApproved {
		now := a.now().UTC()
		if before.ApprovedAt != nil {
			t.Version++
		}
		t.ApprovedBy = actor.userPtr()
		t.ApprovedAt = &now
	}
	if err := a.Documents.ApplyTransition(ctx, actor.OrgID, id, t); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "The document changed while you were working; reload and try again.")
		}
		return a.fail(action, err)
	}

	after := before
	after.Status, after.Version = t.To, t.Version
	if t.ApprovedAt != nil {
		after.ApprovedBy, after.ApprovedAt = t.ApprovedBy, t.ApprovedAt
	}
	before.Body, after.Body = "", ""
	return a.done(ctx, action, actor, "document", id, auditlog.Diff(before, after))
}

// DeleteDocument soft-deletes a document.
func (a *Actions) DeleteDocument(ctx context.Context, actor Actor, documentID string) (Result, error) {
	const action = "document.delete"

	id, ok := parseID(documentID)
	if !ok {
		return a.invalid(action, "Choose a document.")
	}
	if err := a.Documents.SoftDelete(ctx, actor.OrgID, id); err != nil {
		if isNotFound(err) {
			return a.invalid(action, "That document no longer exists.")
		}
		return a.fail(action, err)
	}
	return a.done(ctx, action, actor, "document", id, nil)
}
