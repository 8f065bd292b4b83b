package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleBackupsCollection(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		writeError(w, r, http.StatusServiceUnavailable, "backups disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := a.backups.List()
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "list backups failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		info, err := a.backups.Create(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "create backup failed")
			return
		}
		a.audit(r.Context(), "backup.create", "backup "+info.Name+" written",
			map[string]any{"name": info.Name, "size": info.Size})
		writeJSON(w, http.StatusCreated, info)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBackupResource(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		writeError(w, r, http.StatusServiceUnavailable, "backups disabled")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/backups/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if name, ok := strings.CutSuffix(path, "/restore"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if err := a.backups.Restore(r.Context(), name); err != nil {
			handleStoreError(w, r, err)
			return
		}
		a.audit(r.Context(), "backup.restore", "store restored from "+name,
			map[string]any{"name": name})
		writeJSON(w, http.StatusOK, map[string]any{"restored": name})
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.backups.Delete(path); err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "backup.delete", "backup "+path+" removed",
		map[string]any{"name": path})
	w.WriteHeader(http.StatusNoContent)
}
