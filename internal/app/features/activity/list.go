// internal/app/features/activity/list.go
package activity

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	"github.com/dalemusser/stratagrc/internal/app/system/auditlog"
	"github.com/dalemusser/stratagrc/internal/app/system/formutil"
	"github.com/dalemusser/stratagrc/internal/app/system/navigation"
	"github.com/dalemusser/stratagrc/internal/app/system/paging"
	"github.com/dalemusser/stratagrc/internal/app/system/tenant"
	"github.com/dalemusser/stratagrc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type eventRow struct {
	When    string
	Actor   string
	Event   string
	Entity  string
	Success bool
	Changes []string
}

type listData struct {
	formutil.Base
	Category   string
	Categories []string
	Rows       []eventRow
	Range      paging.Range
	Page       paging.Result
}

var categories = []string{audit.CategoryData, audit.CategoryAdmin, audit.CategoryAuth}

// ServeList renders the organization's audit events, newest first, one
// page at a time. ?category narrows to data, admin or auth events.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromRequest(r)
	if !ok {
		h.ErrLog.LogForbidden(w, r, "activity: no tenant", "You don't have access to this organization.", "/")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "activity list")
	defer cancel()

	start := paging.ParseStart(r)
	filter := filterFor(r, t)
	filter.Limit = paging.LimitPlusOne()
	filter.Offset = paging.Offset(start)

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err, "Could not load activity.", navigation.OrgPath(t.Org.Slug))
		return
	}
	page := paging.TrimPage(&events, start)

	rows, err := h.rows(ctx, events)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load actors failed", err, "Could not load activity.", navigation.OrgPath(t.Org.Slug))
		return
	}

	data := listData{
		Category:   filter.Category,
		Categories: categories,
		Rows:       rows,
		Range:      paging.ComputeRange(start, len(rows)),
		Page:       page,
	}
	formutil.SetBase(&data.Base, r, "Activity", navigation.OrgPath(t.Org.Slug))
	templates.Render(w, r, "activity_list", data)
}

func filterFor(r *http.Request, t tenant.Tenant) audit.QueryFilter {
	orgID := t.Org.ID
	f := audit.QueryFilter{OrganizationID: &orgID}
	for _, c := range categories {
		if query.Get(r, "category") == c {
			f.Category = c
		}
	}
	return f
}

// rows shapes events for display, resolving actor names in one lookup.
func (h *Handler) rows(ctx context.Context, events []audit.Event) ([]eventRow, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, ev := range events {
		if ev.ActorID != nil && !seen[*ev.ActorID] {
			seen[*ev.ActorID] = true
			ids = append(ids, *ev.ActorID)
		}
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		row := eventRow{
			When:    ev.Timestamp.UTC().Format(time.RFC3339),
			Actor:   "system",
			Event:   ev.EventType,
			Entity:  ev.EntityType,
			Success: ev.Success,
		}
		if ev.ActorID != nil {
			if u, ok := users[*ev.ActorID]; ok {
				row.Actor = u.FullName
			} else {
				row.Actor = ev.ActorID.Hex()
			}
		}
		for _, k := range auditlog.DiffKeys(ev.Diff) {
			row.Changes = append(row.Changes, k+": "+ev.Diff[k])
		}
		if len(row.Changes) == 0 && len(ev.Details) > 0 {
			keys := make([]string, 0, len(ev.Details))
			for k := range ev.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				row.Changes = append(row.Changes, k+"="+ev.Details[k])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func joinChanges(changes []string) string {
	return strings.Join(changes, "; ")
}
