// Package httpapi is the HTTP surface of the leasing service. Handlers stay
// thin: validation and JSON plumbing here, domain rules in store, rentledger
// and reports.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentroll.org/internal/audit"
	"rentroll.org/internal/auth"
	"rentroll.org/internal/backup"
	"rentroll.org/internal/obs"
	"rentroll.org/internal/rentledger"
	"rentroll.org/internal/reports"
	"rentroll.org/internal/store"
	"rentroll.org/internal/stream"
)

// ReadyProbe checks backing-store readiness (a DB ping when running on
// Postgres, a no-op on the in-memory store).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the API dependencies.
type Config struct {
	Store   store.Store
	Ready   ReadyProbe
	Stream  *stream.Stream
	Backups *backup.Manager
	Version string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	store    store.Store
	ledger   *rentledger.Engine
	reports  *reports.Engine
	sessions *auth.Sessions
	stream   *stream.Stream
	backups  *backup.Manager
	recorder *audit.Recorder
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		store:      cfg.Store,
		ledger:     rentledger.New(cfg.Store),
		reports:    reports.New(cfg.Store),
		sessions:   auth.NewSessions(cfg.Store.Users()),
		stream:     cfg.Stream,
		backups:    cfg.Backups,
		recorder:   audit.NewRecorder(cfg.Store.Activity()),
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session lifecycle
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/switch", a.handleSwitch)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/users", a.handleUsers)

	// domain resources
	a.mux.HandleFunc("/v1/shops", a.handleShopsCollection)
	a.mux.HandleFunc("/v1/shops/", a.handleShopResource)
	a.mux.HandleFunc("/v1/tenants", a.handleTenantsCollection)
	a.mux.HandleFunc("/v1/tenants/", a.handleTenantResource)
	a.mux.HandleFunc("/v1/agreements", a.handleAgreementsCollection)
	a.mux.HandleFunc("/v1/agreements/", a.handleAgreementResource)
	a.mux.HandleFunc("/v1/payments/", a.handlePaymentResource)
	a.mux.HandleFunc("/v1/expenses", a.handleExpensesCollection)
	a.mux.HandleFunc("/v1/expenses/", a.handleExpenseResource)

	// derived views
	a.mux.HandleFunc("/v1/reports/dashboard", a.handleDashboard)
	a.mux.HandleFunc("/v1/reports/reminders", a.handleReminders)
	a.mux.HandleFunc("/v1/reports/revenue", a.handleRevenue)
	a.mux.HandleFunc("/v1/reports/expenses", a.handleExpensesByCategory)
	a.mux.HandleFunc("/v1/reports/expiring", a.handleExpiringLeases)
	a.mux.HandleFunc("/v1/reports/activity", a.handleActivity)

	// backups
	a.mux.HandleFunc("/v1/backups", a.handleBackupsCollection)
	a.mux.HandleFunc("/v1/backups/", a.handleBackupResource)

	// live change feed
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the instrumented handler chain for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(RequestID(a.withAuth(a.mux)))
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rentroll-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rentroll-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit emits the structured audit line plus the persisted activity entry and
// never fails the request.
func (a *API) audit(ctx context.Context, event, message string, fields map[string]any) {
	a.recorder.Record(ctx, event, message, fields)
}

// changed publishes a store-change event to live subscribers.
func (a *API) changed(entity, id string, op stream.Op) {
	a.stream.Changed(entity, id, op)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleStoreError maps domain error kinds to status codes.
func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, auth.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("value must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("value out of range")
	}
	return val, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("dates must be RFC 3339 or YYYY-MM-DD")
	}
	return t.UTC(), nil
}
