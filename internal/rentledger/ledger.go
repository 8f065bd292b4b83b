// Package rentledger derives the per-period rent obligation and settlement
// state for lease agreements. It holds no state of its own: every result is a
// pure function of the entity store at the moment of the call.
package rentledger

import (
	"context"
	"fmt"
	"time"

	"rentroll.org/internal/store"
)

// PeriodStatus is the derived settlement state of one (month, year) period.
// It is distinct from the persisted status on individual payment rows.
type PeriodStatus string

const (
	PeriodPaid    PeriodStatus = "PAID"
	PeriodPartial PeriodStatus = "PARTIAL"
	PeriodUnpaid  PeriodStatus = "UNPAID"
)

// PeriodRecord is the ledger line for a single period.
type PeriodRecord struct {
	Month     int          `json:"month"`
	Year      int          `json:"year"`
	Due       int64        `json:"due"`
	Paid      int64        `json:"paid"`
	Remaining int64        `json:"remaining"`
	Status    PeriodStatus `json:"status"`
}

// Summary is the full derived ledger for an agreement, from its start month
// through the current month inclusive.
type Summary struct {
	AgreementID      string         `json:"agreement_id"`
	CurrentRemaining int64          `json:"current_remaining"`
	PreviousPending  int64          `json:"previous_pending_total"`
	TotalRemaining   int64          `json:"total_remaining"`
	Records          []PeriodRecord `json:"records"`
}

// PaymentInput carries a payment to be recorded. The period is taken from the
// payment date; the late fee is caller-supplied and never derived.
type PaymentInput struct {
	AgreementID string
	Amount      int64
	Date        time.Time
	Method      store.PaymentMethod
	LateFee     int64
	Reference   string
	Notes       string
}

// Engine computes ledger state over a store snapshot.
type Engine struct {
	store store.Store
	now   func() time.Time
}

// New creates an engine reading from st.
func New(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// WithClock overrides the engine clock; tests pin "now" with it.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// PeriodState computes due/paid/remaining/status for one period of an
// agreement. Due is the flat monthly rent; there is no proration.
func (e *Engine) PeriodState(ctx context.Context, a *store.Agreement, month, year int) (PeriodRecord, error) {
	paid, err := e.store.Payments().SumForPeriod(ctx, a.ID, month, year)
	if err != nil {
		return PeriodRecord{}, fmt.Errorf("sum payments for %d/%d: %w", month, year, err)
	}
	return buildRecord(a.MonthlyRent, paid, month, year), nil
}

func buildRecord(due, paid int64, month, year int) PeriodRecord {
	rec := PeriodRecord{Month: month, Year: year, Due: due, Paid: paid}
	if remaining := due - paid; remaining > 0 {
		rec.Remaining = remaining
	}
	switch {
	case paid >= due:
		rec.Status = PeriodPaid
	case paid > 0:
		rec.Status = PeriodPartial
	default:
		rec.Status = PeriodUnpaid
	}
	return rec
}

// Summarize walks every calendar month from the agreement start through the
// current month and derives the ledger line for each. Records are built
// chronologically so the previous-pending accumulation is correct; set
// newestFirst to reverse the returned order.
func (e *Engine) Summarize(ctx context.Context, agreementID string, newestFirst bool) (Summary, error) {
	a, err := e.store.Agreements().Find(ctx, agreementID)
	if err != nil {
		return Summary{}, err
	}

	now := e.now().UTC()
	curMonth, curYear := int(now.Month()), now.Year()
	month, year := int(a.StartDate.Month()), a.StartDate.Year()

	sum := Summary{AgreementID: a.ID}
	for !periodAfter(month, year, curMonth, curYear) {
		rec, err := e.PeriodState(ctx, a, month, year)
		if err != nil {
			return Summary{}, err
		}
		sum.Records = append(sum.Records, rec)
		if month == curMonth && year == curYear {
			sum.CurrentRemaining = rec.Remaining
		} else {
			sum.PreviousPending += rec.Remaining
		}
		month, year = nextPeriod(month, year)
	}
	sum.TotalRemaining = sum.CurrentRemaining + sum.PreviousPending

	if newestFirst {
		for i, j := 0, len(sum.Records)-1; i < j; i, j = i+1, j-1 {
			sum.Records[i], sum.Records[j] = sum.Records[j], sum.Records[i]
		}
	}
	return sum, nil
}

// RecordPayment validates and persists a rent payment. The payment is applied
// to the period of its date and must not exceed that period's remaining
// amount; an over-limit payment is rejected before any write happens.
// A payment is flagged late when its day-of-month is past the agreement's
// rent due day.
func (e *Engine) RecordPayment(ctx context.Context, in PaymentInput) (*store.Payment, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if in.LateFee < 0 {
		return nil, fmt.Errorf("%w: late fee must not be negative", store.ErrValidation)
	}
	a, err := e.store.Agreements().Find(ctx, in.AgreementID)
	if err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = e.now()
	}
	date = date.UTC()
	month, year := int(date.Month()), date.Year()

	state, err := e.PeriodState(ctx, a, month, year)
	if err != nil {
		return nil, err
	}
	if in.Amount > state.Remaining {
		return nil, fmt.Errorf("%w: payment %d exceeds remaining %d for %d/%d",
			store.ErrValidation, in.Amount, state.Remaining, month, year)
	}

	p := &store.Payment{
		AgreementID: a.ID,
		Amount:      in.Amount,
		PaymentDate: date,
		Month:       month,
		Year:        year,
		Method:      in.Method,
		IsLate:      date.Day() > a.RentDueDay,
		LateFee:     in.LateFee,
		Reference:   in.Reference,
		Notes:       in.Notes,
	}
	if state.Paid+in.Amount >= state.Due {
		p.Status = store.PaymentPaid
	} else {
		p.Status = store.PaymentPartial
	}
	if p.IsLate && p.Status != store.PaymentPaid {
		p.Status = store.PaymentOverdue
	}
	if err := e.store.Payments().Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func nextPeriod(month, year int) (int, int) {
	if month == 12 {
		return 1, year + 1
	}
	return month + 1, year
}

func periodAfter(m1, y1, m2, y2 int) bool {
	if y1 != y2 {
		return y1 > y2
	}
	return m1 > m2
}
