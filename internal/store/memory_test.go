package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedLease(t *testing.T, m *Memory) (*Shop, *Tenant, *Agreement) {
	t.Helper()
	ctx := context.Background()

	sh := &Shop{Building: "Main", ShopNumber: "G-01", MonthlyRent: 50000}
	if err := m.Shops().Create(ctx, sh); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	tn := &Tenant{Name: "Aliya"}
	if err := m.Tenants().Create(ctx, tn); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	ag := &Agreement{
		AgreementNumber: "AG-1",
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyRent:     50000,
		RentDueDay:      5,
	}
	if err := m.Agreements().Create(ctx, ag); err != nil {
		t.Fatalf("create agreement: %v", err)
	}
	return sh, tn, ag
}

func TestAgreementCreateFlipsShopOccupied(t *testing.T) {
	m := NewMemory()
	sh, _, ag := seedLease(t, m)

	if ag.Status != AgreementActive {
		t.Fatalf("agreement status = %s, want ACTIVE", ag.Status)
	}
	got, err := m.Shops().Find(context.Background(), sh.ID)
	if err != nil {
		t.Fatalf("find shop: %v", err)
	}
	if got.Status != ShopOccupied {
		t.Fatalf("shop status = %s, want OCCUPIED", got.Status)
	}
}

func TestSecondActiveAgreementForShopConflicts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, tn, _ := seedLease(t, m)

	err := m.Agreements().Create(ctx, &Agreement{
		AgreementNumber: "AG-2",
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		StartDate:       time.Now(),
		EndDate:         time.Now().AddDate(1, 0, 0),
		RentDueDay:      1,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Only the original agreement exists and the shop stays occupied.
	items, err := m.Agreements().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("agreements = %d, want 1", len(items))
	}
}

func TestAgreementNumberUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, tn, _ := seedLease(t, m)

	other := &Shop{Building: "Annex", ShopNumber: "A-01"}
	if err := m.Shops().Create(ctx, other); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	err := m.Agreements().Create(ctx, &Agreement{
		AgreementNumber: "AG-1",
		ShopID:          other.ID,
		TenantID:        tn.ID,
		RentDueDay:      1,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate number err = %v, want ErrConflict", err)
	}
}

func TestAgreementDueDayValidated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, tn, _ := seedLease(t, m)

	for _, day := range []int{0, 32, -1} {
		err := m.Agreements().Create(ctx, &Agreement{
			AgreementNumber: "AG-X",
			ShopID:          sh.ID,
			TenantID:        tn.ID,
			RentDueDay:      day,
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("due day %d: err = %v, want ErrValidation", day, err)
		}
	}
}

func TestAgreementMissingReferences(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, tn, _ := seedLease(t, m)

	err := m.Agreements().Create(ctx, &Agreement{
		AgreementNumber: "AG-X", ShopID: "missing", TenantID: tn.ID, RentDueDay: 1,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing shop err = %v, want ErrNotFound", err)
	}
	err = m.Agreements().Create(ctx, &Agreement{
		AgreementNumber: "AG-X", ShopID: sh.ID, TenantID: "missing", RentDueDay: 1,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing tenant err = %v, want ErrNotFound", err)
	}
}

func TestTerminalStatusReleasesShop(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, tn, ag := seedLease(t, m)

	if err := m.Agreements().UpdateStatus(ctx, ag.ID, AgreementTerminated); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	got, _ := m.Shops().Find(ctx, sh.ID)
	if got.Status != ShopVacant {
		t.Fatalf("shop status = %s, want VACANT after termination", got.Status)
	}

	// The shop can be leased again now.
	if err := m.Agreements().Create(ctx, &Agreement{
		AgreementNumber: "AG-2",
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		RentDueDay:      1,
	}); err != nil {
		t.Fatalf("re-lease after termination: %v", err)
	}
	got, _ = m.Shops().Find(ctx, sh.ID)
	if got.Status != ShopOccupied {
		t.Fatalf("shop status = %s, want OCCUPIED after re-lease", got.Status)
	}

	// Reactivating the old agreement now conflicts with the new one.
	if err := m.Agreements().UpdateStatus(ctx, ag.ID, AgreementActive); !errors.Is(err, ErrConflict) {
		t.Fatalf("reactivation err = %v, want ErrConflict", err)
	}
}

func TestShopDeleteCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, _, ag := seedLease(t, m)

	if err := m.Payments().Create(ctx, &Payment{
		AgreementID: ag.ID, Amount: 50000, Month: 1, Year: 2024,
		Method: MethodCash, Status: PaymentPaid,
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if err := m.Expenses().Create(ctx, &Expense{
		ShopID: sh.ID, Category: "repairs", Amount: 100, Date: time.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := m.Shops().Delete(ctx, sh.ID); err != nil {
		t.Fatalf("delete shop: %v", err)
	}

	if _, err := m.Agreements().Find(ctx, ag.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("agreement survived shop delete: %v", err)
	}
	payments, _ := m.Payments().ListForAgreement(ctx, ag.ID)
	if len(payments) != 0 {
		t.Fatalf("payments survived shop delete: %d", len(payments))
	}
	expenses, _ := m.Expenses().List(ctx)
	if len(expenses) != 0 {
		t.Fatalf("shop expenses survived shop delete: %d", len(expenses))
	}
}

func TestShopDeactivateKeepsHistory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, _, ag := seedLease(t, m)

	if err := m.Shops().Deactivate(ctx, sh.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := m.Shops().List(ctx, false)
	if len(active) != 0 {
		t.Fatalf("deactivated shop still listed: %d", len(active))
	}
	all, _ := m.Shops().List(ctx, true)
	if len(all) != 1 {
		t.Fatalf("deactivated shop missing from full list")
	}
	if _, err := m.Agreements().Find(ctx, ag.ID); err != nil {
		t.Fatalf("agreement lost on deactivate: %v", err)
	}

	counts, _ := m.Shops().CountByStatus(ctx)
	if counts[ShopOccupied] != 0 {
		t.Fatalf("inactive shop counted in status tally")
	}
}

func TestUserSwitchKeepsSingleActive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := &User{Email: "a@example.com", Name: "A", PasswordHash: "x"}
	b := &User{Email: "b@example.com", Name: "B", PasswordHash: "x"}
	if err := m.Users().Create(ctx, a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := m.Users().Create(ctx, b); err != nil {
		t.Fatalf("create b: %v", err)
	}
	if err := m.Users().Create(ctx, &User{Email: "A@Example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}

	if err := m.Users().Switch(ctx, a.ID); err != nil {
		t.Fatalf("switch a: %v", err)
	}
	if err := m.Users().Switch(ctx, b.ID); err != nil {
		t.Fatalf("switch b: %v", err)
	}

	users, _ := m.Users().List(ctx)
	activeCount := 0
	for _, u := range users {
		if u.Active {
			activeCount++
			if u.ID != b.ID {
				t.Fatalf("wrong user active: %s", u.Email)
			}
		}
	}
	if activeCount != 1 {
		t.Fatalf("active users = %d, want exactly 1", activeCount)
	}

	if err := m.Users().Switch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("switch to missing err = %v, want ErrNotFound", err)
	}
}

func TestActivityRecentNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if err := m.Activity().Append(ctx, &ActivityEntry{Message: msg}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := m.Activity().Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Message != "third" || entries[1].Message != "second" {
		t.Fatalf("wrong order: %s, %s", entries[0].Message, entries[1].Message)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sh, _, ag := seedLease(t, m)
	if err := m.Activity().Append(ctx, &ActivityEntry{Message: "lease signed"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := m.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	restored := NewMemory()
	if err := restored.Import(ctx, snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	gotShop, err := restored.Shops().Find(ctx, sh.ID)
	if err != nil {
		t.Fatalf("find shop after import: %v", err)
	}
	if gotShop.Status != ShopOccupied {
		t.Fatalf("shop status lost in round trip: %s", gotShop.Status)
	}
	if _, err := restored.Agreements().Find(ctx, ag.ID); err != nil {
		t.Fatalf("agreement lost in round trip: %v", err)
	}
	entries, _ := restored.Activity().Recent(ctx, 10)
	if len(entries) != 1 {
		t.Fatalf("activity lost in round trip")
	}

	if err := restored.Import(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("nil snapshot err = %v, want ErrValidation", err)
	}
}
