package httpapi

import (
	"net/http"
	"strings"

	"rentroll.org/internal/store"
	"rentroll.org/internal/stream"
)

type tenantRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	IDProof string `json:"id_proof"`
}

func (a *API) handleTenantsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTenants(w, r)
	case http.MethodPost:
		a.createTenant(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTenantResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tenants/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/deactivate"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.deactivateTenant(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getTenant(w, r, path)
	case http.MethodPut:
		a.updateTenant(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	t := &store.Tenant{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Address: strings.TrimSpace(req.Address),
		IDProof: strings.TrimSpace(req.IDProof),
	}
	if err := a.store.Tenants().Create(r.Context(), t); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "tenant.create", "tenant "+t.Name+" added",
		map[string]any{"tenant_id": t.ID})
	a.changed("tenant", t.ID, stream.OpCreate)

	w.Header().Set("Location", "/v1/tenants/"+t.ID)
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	tenants, err := a.store.Tenants().List(r.Context(), activeOnly)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tenants})
}

func (a *API) getTenant(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.store.Tenants().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateTenant(w http.ResponseWriter, r *http.Request, id string) {
	var req tenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	t, err := a.store.Tenants().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Phone = strings.TrimSpace(req.Phone)
	t.Email = strings.ToLower(strings.TrimSpace(req.Email))
	t.Address = strings.TrimSpace(req.Address)
	t.IDProof = strings.TrimSpace(req.IDProof)
	if err := a.store.Tenants().Update(r.Context(), t); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "tenant.update", "tenant "+t.Name+" updated",
		map[string]any{"tenant_id": t.ID})
	a.changed("tenant", t.ID, stream.OpUpdate)

	writeJSON(w, http.StatusOK, t)
}

func (a *API) deactivateTenant(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Tenants().Deactivate(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "tenant.deactivate", "tenant deactivated",
		map[string]any{"tenant_id": id})
	a.changed("tenant", id, stream.OpUpdate)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}
