package rentledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentroll.org/internal/store"
)

// fixedNow pins the engine clock mid-March so period math is deterministic.
var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, start time.Time, rent int64) (*Engine, *store.Memory, *store.Agreement) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	sh := &store.Shop{Building: "Main", ShopNumber: "G-01", MonthlyRent: rent}
	if err := mem.Shops().Create(ctx, sh); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	tn := &store.Tenant{Name: "Aliya"}
	if err := mem.Tenants().Create(ctx, tn); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	ag := &store.Agreement{
		AgreementNumber: "AG-1",
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		StartDate:       start,
		EndDate:         start.AddDate(1, 0, 0),
		MonthlyRent:     rent,
		RentDueDay:      5,
	}
	if err := mem.Agreements().Create(ctx, ag); err != nil {
		t.Fatalf("create agreement: %v", err)
	}

	eng := New(mem).WithClock(func() time.Time { return fixedNow })
	return eng, mem, ag
}

func TestPartialPaymentLeavesRemaining(t *testing.T) {
	eng, _, ag := newFixture(t, fixedNow.AddDate(0, 0, -10), 50000)
	ctx := context.Background()

	p, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID,
		Amount:      20000,
		Date:        fixedNow,
		Method:      store.MethodCash,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if p.Month != 3 || p.Year != 2024 {
		t.Fatalf("payment assigned to %d/%d, want 3/2024", p.Month, p.Year)
	}

	state, err := eng.PeriodState(ctx, ag, 3, 2024)
	if err != nil {
		t.Fatalf("period state: %v", err)
	}
	if state.Status != PeriodPartial {
		t.Fatalf("status = %s, want PARTIAL", state.Status)
	}
	if state.Remaining != 30000 {
		t.Fatalf("remaining = %d, want 30000", state.Remaining)
	}
}

func TestExactRemainingSettlesPeriod(t *testing.T) {
	eng, _, ag := newFixture(t, fixedNow.AddDate(0, 0, -10), 50000)
	ctx := context.Background()

	for _, amount := range []int64{20000, 30000} {
		if _, err := eng.RecordPayment(ctx, PaymentInput{
			AgreementID: ag.ID, Amount: amount, Date: fixedNow, Method: store.MethodCash,
		}); err != nil {
			t.Fatalf("record %d: %v", amount, err)
		}
	}

	state, err := eng.PeriodState(ctx, ag, 3, 2024)
	if err != nil {
		t.Fatalf("period state: %v", err)
	}
	if state.Status != PeriodPaid || state.Remaining != 0 {
		t.Fatalf("state = %+v, want PAID with 0 remaining", state)
	}

	// A settled period accepts nothing more.
	_, err = eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 1, Date: fixedNow, Method: store.MethodCash,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("payment into settled period: err = %v, want ErrValidation", err)
	}
}

func TestOverpaymentRejectedBeforeWrite(t *testing.T) {
	eng, mem, ag := newFixture(t, fixedNow.AddDate(0, 0, -10), 50000)
	ctx := context.Background()

	_, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 50001, Date: fixedNow, Method: store.MethodCash,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	rows, err := mem.Payments().ListForAgreement(ctx, ag.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rejected payment left %d rows behind", len(rows))
	}

	// Boundary: exactly the remaining amount is accepted.
	if _, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 50000, Date: fixedNow, Method: store.MethodCash,
	}); err != nil {
		t.Fatalf("exact-remaining payment rejected: %v", err)
	}
}

func TestUnpaidMonthsAccumulate(t *testing.T) {
	start := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	eng, _, ag := newFixture(t, start, 50000)
	ctx := context.Background()

	sum, err := eng.Summarize(ctx, ag.ID, false)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(sum.Records) != 3 {
		t.Fatalf("records = %d, want 3 (Jan..Mar)", len(sum.Records))
	}
	if sum.PreviousPending != 100000 {
		t.Fatalf("previous pending = %d, want 100000", sum.PreviousPending)
	}
	if sum.CurrentRemaining != 50000 {
		t.Fatalf("current remaining = %d, want 50000", sum.CurrentRemaining)
	}
	if sum.TotalRemaining != 150000 {
		t.Fatalf("total remaining = %d, want 150000", sum.TotalRemaining)
	}
	for i, rec := range sum.Records {
		if rec.Status != PeriodUnpaid {
			t.Fatalf("record %d status = %s, want UNPAID", i, rec.Status)
		}
	}

	// Paying down January shifts only the previous-pending figure.
	if _, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 50000,
		Date:   time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
		Method: store.MethodBankTransfer,
	}); err != nil {
		t.Fatalf("pay january: %v", err)
	}
	sum, err = eng.Summarize(ctx, ag.ID, false)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.PreviousPending != 50000 || sum.TotalRemaining != 100000 {
		t.Fatalf("after january settle: pending=%d total=%d, want 50000/100000",
			sum.PreviousPending, sum.TotalRemaining)
	}
}

func TestSummarizeNewestFirst(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	eng, _, ag := newFixture(t, start, 50000)

	sum, err := eng.Summarize(context.Background(), ag.ID, true)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Records[0].Month != 3 || sum.Records[len(sum.Records)-1].Month != 1 {
		t.Fatalf("newest-first order broken: %+v", sum.Records)
	}
}

func TestRemainingNeverIncreases(t *testing.T) {
	eng, _, ag := newFixture(t, fixedNow.AddDate(0, 0, -10), 50000)
	ctx := context.Background()

	prev := int64(50000)
	for _, amount := range []int64{5000, 15000, 10000, 20000} {
		if _, err := eng.RecordPayment(ctx, PaymentInput{
			AgreementID: ag.ID, Amount: amount, Date: fixedNow, Method: store.MethodCash,
		}); err != nil {
			t.Fatalf("record %d: %v", amount, err)
		}
		state, err := eng.PeriodState(ctx, ag, 3, 2024)
		if err != nil {
			t.Fatalf("period state: %v", err)
		}
		if state.Remaining > prev {
			t.Fatalf("remaining grew from %d to %d", prev, state.Remaining)
		}
		prev = state.Remaining
	}
	if prev != 0 {
		t.Fatalf("final remaining = %d, want 0", prev)
	}
}

func TestLateFlagFollowsDueDay(t *testing.T) {
	eng, _, ag := newFixture(t, fixedNow.AddDate(0, 0, -30), 50000)
	ctx := context.Background()

	// Due day is 5; the 4th is on time, the 10th is late.
	onTime, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 10000,
		Date:   time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		Method: store.MethodCash,
	})
	if err != nil {
		t.Fatalf("record on-time: %v", err)
	}
	if onTime.IsLate {
		t.Fatal("payment on the 4th flagged late with due day 5")
	}

	late, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: ag.ID, Amount: 10000, LateFee: 500,
		Date:   time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Method: store.MethodCash,
	})
	if err != nil {
		t.Fatalf("record late: %v", err)
	}
	if !late.IsLate || late.LateFee != 500 {
		t.Fatalf("late payment = %+v, want IsLate with fee 500", late)
	}
	if late.Status != store.PaymentOverdue {
		t.Fatalf("late partial payment status = %s, want OVERDUE", late.Status)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	eng, _, ag := newFixture(t, fixedNow.AddDate(0, 0, -10), 50000)
	ctx := context.Background()

	cases := []struct {
		name string
		in   PaymentInput
	}{
		{"zero amount", PaymentInput{AgreementID: ag.ID, Amount: 0, Date: fixedNow}},
		{"negative amount", PaymentInput{AgreementID: ag.ID, Amount: -5, Date: fixedNow}},
		{"negative late fee", PaymentInput{AgreementID: ag.ID, Amount: 100, LateFee: -1, Date: fixedNow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := eng.RecordPayment(ctx, tc.in); !errors.Is(err, store.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}

	if _, err := eng.RecordPayment(ctx, PaymentInput{
		AgreementID: "missing", Amount: 100, Date: fixedNow,
	}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown agreement err = %v, want ErrNotFound", err)
	}
}
