package store

import (
	"context"
	"time"
)

// Store groups the persistence contracts for the leasing domain. Higher
// layers (rent ledger, reports) are pure reads over these interfaces and keep
// no state of their own.
type Store interface {
	Users() UserStore
	Shops() ShopStore
	Tenants() TenantStore
	Agreements() AgreementStore
	Payments() PaymentStore
	Expenses() ExpenseStore
	Activity() ActivityStore
}

// UserStore manages operator accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// Switch deactivates every user and activates the given one, atomically.
	// This is the single-tenant session-switch operation.
	Switch(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// ShopStore manages leasable units.
type ShopStore interface {
	Create(ctx context.Context, s *Shop) error
	Find(ctx context.Context, id string) (*Shop, error)
	List(ctx context.Context, includeInactive bool) ([]*Shop, error)
	Update(ctx context.Context, s *Shop) error
	UpdateStatus(ctx context.Context, id string, status ShopStatus) error
	// Deactivate soft-deletes the shop, preserving historical agreements
	// and payments.
	Deactivate(ctx context.Context, id string) error
	// Delete hard-deletes the shop; dependent agreements, their payments and
	// shop-scoped expenses cascade.
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// TenantStore manages renters.
type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	Find(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context, activeOnly bool) ([]*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	Deactivate(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int, error)
}

// AgreementStore manages lease agreements and owns the two cross-record
// invariants: at most one ACTIVE agreement per shop, and the agreement/shop
// status pair always moving together.
type AgreementStore interface {
	// Create inserts the agreement and flips the shop to OCCUPIED in a single
	// transaction. Fails with ErrConflict when the shop already has an ACTIVE
	// agreement or the agreement number is taken, ErrValidation when the rent
	// due day is outside 1..31, ErrNotFound when shop or tenant is missing.
	Create(ctx context.Context, a *Agreement) error
	Find(ctx context.Context, id string) (*Agreement, error)
	FindByNumber(ctx context.Context, number string) (*Agreement, error)
	ActiveForShop(ctx context.Context, shopID string) (*Agreement, error)
	List(ctx context.Context) ([]*Agreement, error)
	ListActive(ctx context.Context) ([]*Agreement, error)
	// ExpiringBefore returns still-ACTIVE agreements whose end date falls
	// before the cutoff.
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*Agreement, error)
	// UpdateStatus moves the agreement to the given status. A terminal status
	// returns the shop to VACANT unless another ACTIVE agreement already
	// references it.
	UpdateStatus(ctx context.Context, id string, status AgreementStatus) error
	// Delete hard-deletes the agreement; its payments cascade.
	Delete(ctx context.Context, id string) error
}

// PaymentStore manages immutable rent payment rows.
type PaymentStore interface {
	Create(ctx context.Context, p *Payment) error
	Find(ctx context.Context, id string) (*Payment, error)
	ListForAgreement(ctx context.Context, agreementID string) ([]*Payment, error)
	ListForPeriod(ctx context.Context, agreementID string, month, year int) ([]*Payment, error)
	SumForPeriod(ctx context.Context, agreementID string, month, year int) (int64, error)
	SumForYear(ctx context.Context, agreementID string, year int) (int64, error)
	// SumAllForPeriod sums payments across all agreements for the calendar
	// period; this backs the dashboard monthly revenue figure.
	SumAllForPeriod(ctx context.Context, month, year int) (int64, error)
}

// ExpenseStore manages operating costs.
type ExpenseStore interface {
	Create(ctx context.Context, e *Expense) error
	List(ctx context.Context) ([]*Expense, error)
	Delete(ctx context.Context, id string) error
	// SumSince sums expenses dated within (since, now]; the dashboard uses a
	// trailing 30-day window here, deliberately not a calendar month.
	SumSince(ctx context.Context, since time.Time) (int64, error)
	SumByCategorySince(ctx context.Context, since time.Time) (map[string]int64, error)
}

// ActivityStore appends immutable audit-trail entries.
type ActivityStore interface {
	Append(ctx context.Context, e *ActivityEntry) error
	// Recent returns the newest entries, newest first, capped at limit.
	Recent(ctx context.Context, limit int) ([]*ActivityEntry, error)
}

// Snapshot is a full copy of the store used for opaque backup blobs.
type Snapshot struct {
	TakenAt    time.Time        `json:"taken_at"`
	Users      []*User          `json:"users"`
	Shops      []*Shop          `json:"shops"`
	Tenants    []*Tenant        `json:"tenants"`
	Agreements []*Agreement     `json:"agreements"`
	Payments   []*Payment       `json:"payments"`
	Expenses   []*Expense       `json:"expenses"`
	Activity   []*ActivityEntry `json:"activity"`
}

// Snapshotter is implemented by stores that support whole-store export and
// restore for backups.
type Snapshotter interface {
	Export(ctx context.Context) (*Snapshot, error)
	Import(ctx context.Context, snap *Snapshot) error
}
