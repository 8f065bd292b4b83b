package httpapi

import (
	"net/http"
	"strings"

	"rentroll.org/internal/store"
	"rentroll.org/internal/stream"
)

type shopRequest struct {
	Building        string  `json:"building"`
	Floor           string  `json:"floor"`
	ShopNumber      string  `json:"shop_number"`
	AreaSqft        float64 `json:"area_sqft"`
	MonthlyRent     int64   `json:"monthly_rent"`
	SecurityDeposit int64   `json:"security_deposit"`
}

type shopStatusRequest struct {
	Status string `json:"status"`
}

func (req *shopRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Building) == "":
		return "building is required"
	case strings.TrimSpace(req.ShopNumber) == "":
		return "shop_number is required"
	case req.MonthlyRent < 0:
		return "monthly_rent must be >= 0"
	case req.SecurityDeposit < 0:
		return "security_deposit must be >= 0"
	case req.AreaSqft < 0:
		return "area_sqft must be >= 0"
	}
	return ""
}

func (a *API) handleShopsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listShops(w, r)
	case http.MethodPost:
		a.createShop(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleShopResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/shops/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/status"); ok {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateShopStatus(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/deactivate"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.deactivateShop(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getShop(w, r, path)
	case http.MethodPut:
		a.updateShop(w, r, path)
	case http.MethodDelete:
		a.deleteShop(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	sh := &store.Shop{
		Building:        strings.TrimSpace(req.Building),
		Floor:           strings.TrimSpace(req.Floor),
		ShopNumber:      strings.TrimSpace(req.ShopNumber),
		AreaSqft:        req.AreaSqft,
		MonthlyRent:     req.MonthlyRent,
		SecurityDeposit: req.SecurityDeposit,
	}
	if err := a.store.Shops().Create(r.Context(), sh); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "shop.create", "shop "+sh.ShopNumber+" added",
		map[string]any{"shop_id": sh.ID})
	a.changed("shop", sh.ID, stream.OpCreate)

	w.Header().Set("Location", "/v1/shops/"+sh.ID)
	writeJSON(w, http.StatusCreated, sh)
}

func (a *API) listShops(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	shops, err := a.store.Shops().List(r.Context(), includeInactive)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": shops})
}

func (a *API) getShop(w http.ResponseWriter, r *http.Request, id string) {
	sh, err := a.store.Shops().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) updateShop(w http.ResponseWriter, r *http.Request, id string) {
	var req shopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	sh, err := a.store.Shops().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	sh.Building = strings.TrimSpace(req.Building)
	sh.Floor = strings.TrimSpace(req.Floor)
	sh.ShopNumber = strings.TrimSpace(req.ShopNumber)
	sh.AreaSqft = req.AreaSqft
	sh.MonthlyRent = req.MonthlyRent
	sh.SecurityDeposit = req.SecurityDeposit
	if err := a.store.Shops().Update(r.Context(), sh); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "shop.update", "shop "+sh.ShopNumber+" updated",
		map[string]any{"shop_id": sh.ID})
	a.changed("shop", sh.ID, stream.OpUpdate)

	writeJSON(w, http.StatusOK, sh)
}

func (a *API) updateShopStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req shopStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := store.ShopStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch status {
	case store.ShopVacant, store.ShopOccupied, store.ShopUnderMaintenance, store.ShopReserved:
	default:
		writeError(w, r, http.StatusBadRequest, "unknown shop status")
		return
	}

	if err := a.store.Shops().UpdateStatus(r.Context(), id, status); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "shop.status", "shop status set to "+string(status),
		map[string]any{"shop_id": id, "status": string(status)})
	a.changed("shop", id, stream.OpUpdate)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (a *API) deactivateShop(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Shops().Deactivate(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "shop.deactivate", "shop retired",
		map[string]any{"shop_id": id})
	a.changed("shop", id, stream.OpUpdate)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

func (a *API) deleteShop(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Shops().Delete(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "shop.delete", "shop removed with its history",
		map[string]any{"shop_id": id})
	a.changed("shop", id, stream.OpDelete)

	w.WriteHeader(http.StatusNoContent)
}
