package donate

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/dalemusser/gicesite/internal/app/system/jsonutil"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
)

const adminListLimit = 200

// AdminRoutes returns the donation report, mounted at /admin/donations
// behind the admin guard.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.AdminList)
	return r
}

// APIRoutes returns the read-only JSON export, mounted at /api/donations
// behind API key auth.
func APIRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.APIList)
	return r
}

// Total is one currency's captured sum, formatted for display.
type Total struct {
	Currency string
	Display  string
}

// AdminListVM is the view model for the donation report.
type AdminListVM struct {
	viewdata.BaseVM
	Items  []models.Donation
	Totals []Total
}

// AdminList shows the most recent donations and per-currency totals.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	vm := AdminListVM{BaseVM: viewdata.New(r)}
	vm.Title = "Donations"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.store.List(ctx, adminListLimit)
	if err != nil {
		h.errLog.Log(r, "list donations", err)
		vm.ShowError("Donations could not be loaded.")
	}
	vm.Items = items

	sums, err := h.store.Totals(ctx)
	if err != nil {
		h.errLog.Log(r, "donation totals", err)
		vm.ShowError("Donations could not be loaded.")
	}
	vm.Totals = formatTotals(sums)

	templates.Render(w, r, "donate/admin_list", vm)
}

func formatTotals(sums map[string]int64) []Total {
	out := make([]Total, 0, len(sums))
	for cur, amt := range sums {
		out = append(out, Total{
			Currency: cur,
			Display:  models.Donation{Amount: amt, Currency: cur}.DisplayAmount(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// APIList returns donations newest first. ?limit= caps the count (default 100).
func (h *Handler) APIList(w http.ResponseWriter, r *http.Request) {
	limit := int64(100)
	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 || n > 1000 {
			jsonutil.BadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.store.List(ctx, limit)
	if err != nil {
		h.errLog.Log(r, "api list donations", err)
		jsonutil.InternalError(w, "failed to list donations")
		return
	}
	if items == nil {
		items = []models.Donation{}
	}
	sums, err := h.store.Totals(ctx)
	if err != nil {
		h.errLog.Log(r, "api donation totals", err)
		jsonutil.InternalError(w, "failed to total donations")
		return
	}
	jsonutil.OK(w, map[string]any{
		"donations": items,
		"totals":    sums,
	})
}
