// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/actions"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
)

type orgRow struct {
	ID        string
	Slug      string
	Name      string
	Members   int64
	Deleted   bool
	DeletedAt time.Time
	CreatedAt time.Time
}

type listData struct {
	formutil.Base
	Q           string
	ShowDeleted bool
	Rows        []orgRow
	Form        actions.OrganizationInput
}

// ServeList handles GET /admin/orgs (with optional ?q= search and
// ?deleted=1 to include soft-deleted organizations).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, actions.OrganizationInput{}, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form actions.OrganizationInput, errMsg string) {
	q := strings.TrimSpace(query.Get(r, "q"))
	showDeleted := query.Get(r, "deleted") == "1"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	orgs, err := h.Orgs.List(ctx, showDeleted)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list organizations failed", err, "Unable to load organizations.", "/admin")
		return
	}

	data := listData{Q: q, ShowDeleted: showDeleted, Form: form}
	fq := text.Fold(q)
	for _, o := range orgs {
		if fq != "" && !strings.HasPrefix(o.NameCI, fq) && !strings.Contains(o.Slug, strings.ToLower(q)) {
			continue
		}
		members, err := h.Memberships.CountActive(ctx, o.ID, "")
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count members failed", err, "Unable to load organizations.", "/admin")
			return
		}
		row := orgRow{
			ID:        o.ID.Hex(),
			Slug:      o.Slug,
			Name:      o.Name,
			Members:   members,
			Deleted:   o.IsDeleted(),
			CreatedAt: o.CreatedAt,
		}
		if o.DeletedAt != nil {
			row.DeletedAt = *o.DeletedAt
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Organizations", "/admin")
	data.SetError(errMsg)
	templates.Render(w, r, "admin_orgs_list", data)
}

// roleOptions are offered by the add member form.
var roleOptions = models.TenantRoles
