package httpapi

import (
	"net/http"
	"time"

	"rentroll.org/internal/obs"
)

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	stats, err := a.reports.Dashboard(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items, err := a.reports.RentDueReminders(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	obs.SetReminderCount(len(items))
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleRevenue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	year, err := parsePositiveInt(r.URL.Query().Get("year"), time.Now().UTC().Year(), 2000, 2200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "year must be a four-digit year")
		return
	}
	items, err := a.reports.RevenueByMonth(r.Context(), year)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	days, err := parsePositiveInt(r.URL.Query().Get("days"), 30, 1, 3650)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "days must be between 1 and 3650")
		return
	}
	totals, err := a.reports.ExpensesByCategory(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (a *API) handleExpiringLeases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	days, err := parsePositiveInt(r.URL.Query().Get("days"), 30, 1, 3650)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "days must be between 1 and 3650")
		return
	}
	items, err := a.reports.ExpiringLeases(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	items, err := a.reports.RecentActivity(r.Context(), limit)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
