package store

import "time"

// All monetary amounts are in minor units (e.g., cents). No floats.

// ShopStatus tracks the leasable state of a unit.
type ShopStatus string

const (
	ShopVacant           ShopStatus = "VACANT"
	ShopOccupied         ShopStatus = "OCCUPIED"
	ShopUnderMaintenance ShopStatus = "UNDER_MAINTENANCE"
	ShopReserved         ShopStatus = "RESERVED"
)

// AgreementStatus tracks the lifecycle of a lease agreement.
type AgreementStatus string

const (
	AgreementActive     AgreementStatus = "ACTIVE"
	AgreementExpired    AgreementStatus = "EXPIRED"
	AgreementTerminated AgreementStatus = "TERMINATED"
	AgreementRenewed    AgreementStatus = "RENEWED"
)

// Terminal reports whether the status ends the agreement.
func (s AgreementStatus) Terminal() bool {
	return s == AgreementExpired || s == AgreementTerminated || s == AgreementRenewed
}

// PaymentMethod is how a rent payment was made.
type PaymentMethod string

const (
	MethodCash          PaymentMethod = "CASH"
	MethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	MethodCheque        PaymentMethod = "CHEQUE"
	MethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
)

// PaymentStatus is the persisted status on an individual payment row. The
// derived per-period status lives in the rentledger package.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// User is the landlord/operator account. Deactivated on account switch, never
// deleted. At most one user is active at a time.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Shop is a leasable unit. Soft-deleted via IsActive to preserve payment and
// report history.
type Shop struct {
	ID              string     `json:"id"`
	Building        string     `json:"building"`
	Floor           string     `json:"floor"`
	ShopNumber      string     `json:"shop_number"`
	AreaSqft        float64    `json:"area_sqft"`
	MonthlyRent     int64      `json:"monthly_rent"`
	SecurityDeposit int64      `json:"security_deposit"`
	Status          ShopStatus `json:"status"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Tenant rents one or more shops over time. Deactivated, never hard-deleted.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	IDProof   string    `json:"id_proof,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Agreement binds exactly one shop to one tenant for a date range.
// At most one ACTIVE agreement may reference a shop at any time.
type Agreement struct {
	ID              string          `json:"id"`
	AgreementNumber string          `json:"agreement_number"`
	ShopID          string          `json:"shop_id"`
	TenantID        string          `json:"tenant_id"`
	OwnerUserID     string          `json:"owner_user_id"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	MonthlyRent     int64           `json:"monthly_rent"`
	SecurityDeposit int64           `json:"security_deposit"`
	RentDueDay      int             `json:"rent_due_day"` // 1..31
	Status          AgreementStatus `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Payment is one payment row against an agreement for a (month, year) period.
// Rows are immutable once created; corrections are additional rows. Multiple
// rows may exist per period and are summed by the ledger.
type Payment struct {
	ID          string        `json:"id"`
	AgreementID string        `json:"agreement_id"`
	Amount      int64         `json:"amount"`
	PaymentDate time.Time     `json:"payment_date"`
	Month       int           `json:"month"` // 1..12
	Year        int           `json:"year"`
	Method      PaymentMethod `json:"method"`
	IsLate      bool          `json:"is_late"`
	LateFee     int64         `json:"late_fee"`
	Status      PaymentStatus `json:"status"`
	Reference   string        `json:"reference,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Expense is an operating cost, optionally tied to a shop. Aggregated for
// profit/loss only; independent of the rent ledger.
type Expense struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id,omitempty"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
	Recurring     bool      `json:"recurring"`
	RecurrenceGap string    `json:"recurrence_gap,omitempty"` // "monthly", "quarterly", ...
	CreatedAt     time.Time `json:"created_at"`
}

// ActivityEntry is one line of the append-only audit trail.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StatusCounts is the per-status shop tally used by dashboard aggregation.
type StatusCounts map[ShopStatus]int
