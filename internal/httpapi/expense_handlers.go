package httpapi

import (
	"net/http"
	"strings"

	"rentroll.org/internal/store"
	"rentroll.org/internal/stream"
)

type expenseRequest struct {
	ShopID        string `json:"shop_id"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Amount        int64  `json:"amount"`
	Date          string `json:"date"`
	Recurring     bool   `json:"recurring"`
	RecurrenceGap string `json:"recurrence_gap"`
}

func (a *API) handleExpensesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listExpenses(w, r)
	case http.MethodPost:
		a.createExpense(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleExpenseResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/expenses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	if err := a.store.Expenses().Delete(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "expense.delete", "expense removed",
		map[string]any{"expense_id": id})
	a.changed("expense", id, stream.OpDelete)

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeError(w, r, http.StatusBadRequest, "category is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, r, http.StatusBadRequest, "amount must be > 0")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	e := &store.Expense{
		ShopID:        strings.TrimSpace(req.ShopID),
		Category:      strings.TrimSpace(req.Category),
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		Date:          date,
		Recurring:     req.Recurring,
		RecurrenceGap: strings.TrimSpace(req.RecurrenceGap),
	}
	if err := a.store.Expenses().Create(r.Context(), e); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "expense.create", "expense recorded under "+e.Category,
		map[string]any{"expense_id": e.ID, "amount": e.Amount})
	a.changed("expense", e.ID, stream.OpCreate)

	w.Header().Set("Location", "/v1/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) listExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.Expenses().List(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
