// internal/app/features/documents/view.go
package documents

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	userstore "github.com/dalemusser/stratagrc/internal/app/store/users"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type viewData struct {
	formutil.Base
	ID         string
	DocTitle   string
	Kind       string
	Version    int
	Status     string
	ApprovedBy string
	ApprovedAt string
	Body       template.HTML
	Next       []string
	CanApprove bool
}

// ServeView renders one document with its sanitized body.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "documents: no tenant", "You don't have access to this organization.", "/")
		return
	}
	back := navigation.OrgPath(t.Org.Slug, "documents")

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "bad document id", err, "That document link is not valid.", back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := documentstore.New(h.DB).Get(ctx, t.Org.ID, id)
	if errors.Is(err, documentstore.ErrNotFound) {
		h.ErrLog.LogBadRequest(w, r, "document not found", err, "That document no longer exists.", back)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load document failed", err, "Could not load the document.", back)
		return
	}

	data := viewData{
		ID:       d.ID.Hex(),
		DocTitle: d.Title,
		Kind:     d.Kind,
		Version:  d.Version,
		Status:   d.Status,
		Body:     htmlsanitize.PrepareForDisplay(d.Body),
	}
	role := t.Role()
	data.CanApprove = role == models.RoleOwner || role == models.RoleAdmin
	for _, next := range models.NextDocumentStatuses(d.Status) {
		if next == models.DocumentApproved && !data.CanApprove {
			continue
		}
		data.Next = append(data.Next, next)
	}
	if d.ApprovedAt != nil {
		data.ApprovedAt = d.ApprovedAt.UTC().Format("2006-01-02")
	}
	if d.ApprovedBy != nil {
		if u, err := userstore.New(h.DB).GetByID(ctx, *d.ApprovedBy); err == nil {
			data.ApprovedBy = u.FullName
		}
	}

	formutil.SetBase(&data.Base, r, d.Title, back)
	templates.Render(w, r, "documents_view", data)
}
