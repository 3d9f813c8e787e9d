// internal/app/features/documents/list.go
package documents

import (
	"context"
	"net/http"

	documentstore "github.com/dalemusser/stratagrc/internal/app/store/documents"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
)

type docRow struct {
	ID        string
	Title     string
	Kind      string
	Version   int
	Status    string
	Approved  string
	ReviewDue string
}

type listData struct {
	formutil.Base
	Rows []docRow
}

// ServeList renders the document register.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, errMsg string) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "documents: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := documentstore.New(h.DB).List(ctx, t.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list documents failed", err, "Could not load documents.", navigation.OrgPath(t.Org.Slug))
		return
	}

	var data listData
	for _, d := range docs {
		row := docRow{
			ID:      d.ID.Hex(),
			Title:   d.Title,
			Kind:    d.Kind,
			Version: d.Version,
			Status:  d.Status,
		}
		if d.ApprovedAt != nil {
			row.Approved = d.ApprovedAt.UTC().Format("2006-01-02")
		}
		if d.ReviewDue != nil {
			row.ReviewDue = d.ReviewDue.UTC().Format("2006-01-02")
		}
		data.Rows = append(data.Rows, row)
	}

	formutil.SetBase(&data.Base, r, "Documents", navigation.OrgPath(t.Org.Slug))
	data.SetError(errMsg)
	templates.Render(w, r, "documents_list", data)
}
