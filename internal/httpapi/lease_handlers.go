package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rentroll.org/internal/auth"
	"rentroll.org/internal/obs"
	"rentroll.org/internal/rentledger"
	"rentroll.org/internal/store"
	"rentroll.org/internal/stream"
)

type agreementRequest struct {
	AgreementNumber string `json:"agreement_number"`
	ShopID          string `json:"shop_id"`
	TenantID        string `json:"tenant_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	MonthlyRent     int64  `json:"monthly_rent"`
	SecurityDeposit int64  `json:"security_deposit"`
	RentDueDay      int    `json:"rent_due_day"`
}

type agreementStatusRequest struct {
	Status string `json:"status"`
}

type paymentRequest struct {
	Amount    int64  `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method"`
	LateFee   int64  `json:"late_fee"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

func (a *API) handleAgreementsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAgreements(w, r)
	case http.MethodPost:
		a.createAgreement(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAgreementResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/agreements/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/status"); ok {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateAgreementStatus(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/ledger"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getRentLedger(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/payments"); ok {
		switch r.Method {
		case http.MethodGet:
			a.listPayments(w, r, id)
		case http.MethodPost:
			a.recordPayment(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getAgreement(w, r, path)
	case http.MethodDelete:
		a.deleteAgreement(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) createAgreement(w http.ResponseWriter, r *http.Request) {
	var req agreementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case strings.TrimSpace(req.AgreementNumber) == "":
		writeError(w, r, http.StatusBadRequest, "agreement_number is required")
		return
	case strings.TrimSpace(req.ShopID) == "" || strings.TrimSpace(req.TenantID) == "":
		writeError(w, r, http.StatusBadRequest, "shop_id and tenant_id are required")
		return
	case req.MonthlyRent < 0:
		writeError(w, r, http.StatusBadRequest, "monthly_rent must be >= 0")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil || start.IsZero() {
		writeError(w, r, http.StatusBadRequest, "start_date is required")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil || end.IsZero() {
		writeError(w, r, http.StatusBadRequest, "end_date is required")
		return
	}
	if !end.After(start) {
		writeError(w, r, http.StatusBadRequest, "end_date must be after start_date")
		return
	}

	ag := &store.Agreement{
		AgreementNumber: strings.TrimSpace(req.AgreementNumber),
		ShopID:          strings.TrimSpace(req.ShopID),
		TenantID:        strings.TrimSpace(req.TenantID),
		StartDate:       start,
		EndDate:         end,
		MonthlyRent:     req.MonthlyRent,
		SecurityDeposit: req.SecurityDeposit,
		RentDueDay:      req.RentDueDay,
	}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		ag.OwnerUserID = userID
	}
	if err := a.store.Agreements().Create(r.Context(), ag); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "agreement.create",
		"lease "+ag.AgreementNumber+" signed for shop "+ag.ShopID,
		map[string]any{"agreement_id": ag.ID, "shop_id": ag.ShopID, "tenant_id": ag.TenantID})
	a.changed("agreement", ag.ID, stream.OpCreate)
	a.changed("shop", ag.ShopID, stream.OpUpdate)

	w.Header().Set("Location", "/v1/agreements/"+ag.ID)
	writeJSON(w, http.StatusCreated, ag)
}

func (a *API) listAgreements(w http.ResponseWriter, r *http.Request) {
	var (
		items []*store.Agreement
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		items, err = a.store.Agreements().ListActive(r.Context())
	} else {
		items, err = a.store.Agreements().List(r.Context())
	}
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getAgreement(w http.ResponseWriter, r *http.Request, id string) {
	ag, err := a.store.Agreements().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

func (a *API) updateAgreementStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req agreementStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := store.AgreementStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	if err := a.store.Agreements().UpdateStatus(r.Context(), id, status); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "agreement.status", "lease moved to "+string(status),
		map[string]any{"agreement_id": id, "status": string(status)})
	a.changed("agreement", id, stream.OpUpdate)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (a *API) deleteAgreement(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Agreements().Delete(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "agreement.delete", "lease removed with its payments",
		map[string]any{"agreement_id": id})
	a.changed("agreement", id, stream.OpDelete)

	w.WriteHeader(http.StatusNoContent)
}

// getRentLedger returns the derived per-period ledger for an agreement.
func (a *API) getRentLedger(w http.ResponseWriter, r *http.Request, id string) {
	newestFirst := r.URL.Query().Get("order") == "desc"
	sum, err := a.ledger.Summarize(r.Context(), id, newestFirst)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request, id string) {
	items, err := a.store.Payments().ListForAgreement(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request, id string) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	method := store.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
	switch method {
	case store.MethodCash, store.MethodBankTransfer, store.MethodCheque, store.MethodDigitalWallet:
	case "":
		method = store.MethodCash
	default:
		writeError(w, r, http.StatusBadRequest, "unknown payment method")
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	p, err := a.ledger.RecordPayment(r.Context(), rentledger.PaymentInput{
		AgreementID: id,
		Amount:      req.Amount,
		Date:        date,
		Method:      method,
		LateFee:     req.LateFee,
		Reference:   strings.TrimSpace(req.Reference),
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	obs.PaymentRecorded()
	a.audit(r.Context(), "payment.record", "rent payment recorded",
		map[string]any{
			"payment_id":   p.ID,
			"agreement_id": p.AgreementID,
			"amount":       p.Amount,
			"month":        p.Month,
			"year":         p.Year,
		})
	a.changed("payment", p.ID, stream.OpCreate)

	w.Header().Set("Location", "/v1/payments/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handlePaymentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, err := a.store.Payments().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
