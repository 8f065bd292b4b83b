package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"rentroll.org/internal/auth"
	"rentroll.org/internal/store"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type switchRequest struct {
	UserID string `json:"user_id"`
}

type sessionResponse struct {
	Token string      `json:"token,omitempty"`
	User  *store.User `json:"user"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	u, err := a.sessions.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, r, http.StatusConflict, "email already registered")
			return
		}
		if errors.Is(err, store.ErrUnavailable) {
			handleStoreError(w, r, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	a.audit(r.Context(), "auth.signup", "account created for "+u.Email,
		map[string]any{"user_id": u.ID, "email": u.Email})

	writeJSON(w, http.StatusCreated, sessionResponse{User: u})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := a.sessions.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "auth.login", u.Email+" logged in",
		map[string]any{"user_id": u.ID})

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: u})
}

// handleSwitch moves the single active session to another account. The
// request must already carry a valid token; the response carries one for the
// target account.
func (a *API) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req switchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	token, u, err := a.sessions.Switch(r.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "auth.switch", "active account switched to "+u.Email,
		map[string]any{"user_id": u.ID})

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: u})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	u, err := a.store.Users().Find(r.Context(), userID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.store.Users().List(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}
