package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentroll.org/internal/store"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	eng *Engine
	mem *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	eng := New(mem).WithClock(func() time.Time { return fixedNow })
	return &fixture{eng: eng, mem: mem}
}

func (f *fixture) lease(t *testing.T, rent int64, dueDay int) *store.Agreement {
	t.Helper()
	ctx := context.Background()
	sh := &store.Shop{Building: "Main", ShopNumber: "G-01", MonthlyRent: rent}
	require.NoError(t, f.mem.Shops().Create(ctx, sh))
	tn := &store.Tenant{Name: "Bolat"}
	require.NoError(t, f.mem.Tenants().Create(ctx, tn))
	ag := &store.Agreement{
		AgreementNumber: "AG-" + sh.ID,
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		StartDate:       fixedNow.AddDate(0, -2, 0),
		EndDate:         fixedNow.AddDate(1, 0, 0),
		MonthlyRent:     rent,
		RentDueDay:      dueDay,
	}
	require.NoError(t, f.mem.Agreements().Create(ctx, ag))
	return ag
}

func TestRemindersFlagOverdueAgreements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Due day 5, today is the 10th: overdue by 5 whole days.
	ag := f.lease(t, 50000, 5)

	items, err := f.eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, ag.ID, items[0].Agreement.ID)
	require.Equal(t, 5, items[0].DaysOverdue)
	require.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), items[0].DueDate)
	require.NotNil(t, items[0].Shop)
	require.NotNil(t, items[0].Tenant)
}

func TestRemindersStableAcrossReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lease(t, 50000, 5)

	first, err := f.eng.RentDueReminders(ctx)
	require.NoError(t, err)
	second, err := f.eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second, "repeated scans without writes must agree")
}

func TestRemindersNotDueYet(t *testing.T) {
	f := newFixture(t)

	// Due day 15 has not passed on the 10th, due day 10 is still within its day.
	f.lease(t, 50000, 15)
	f.lease(t, 50000, 10)

	items, err := f.eng.RentDueReminders(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestAnyPaymentClearsReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ag := f.lease(t, 50000, 5)

	require.NoError(t, f.mem.Payments().Create(ctx, &store.Payment{
		AgreementID: ag.ID,
		Amount:      10000,
		PaymentDate: fixedNow,
		Month:       3,
		Year:        2024,
		Method:      store.MethodCash,
		Status:      store.PaymentPartial,
	}))

	items, err := f.eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Empty(t, items, "a partial payment clears the reminder by default")

	// Opting in to partial reminders brings the agreement back.
	f.eng.RemindPartial = true
	items, err = f.eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestReminderDueDayClampedToMonthLength(t *testing.T) {
	mem := store.NewMemory()
	// End of February: a due day of 31 must clamp to the 29th (leap year).
	febNow := time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)
	eng := New(mem).WithClock(func() time.Time { return febNow })
	ctx := context.Background()

	sh := &store.Shop{Building: "Main", ShopNumber: "G-02", MonthlyRent: 40000}
	require.NoError(t, mem.Shops().Create(ctx, sh))
	tn := &store.Tenant{Name: "Dana"}
	require.NoError(t, mem.Tenants().Create(ctx, tn))
	require.NoError(t, mem.Agreements().Create(ctx, &store.Agreement{
		AgreementNumber: "AG-FEB",
		ShopID:          sh.ID,
		TenantID:        tn.ID,
		StartDate:       febNow.AddDate(0, -3, 0),
		EndDate:         febNow.AddDate(1, 0, 0),
		MonthlyRent:     40000,
		RentDueDay:      31,
	}))

	// 23:59:59 on the clamped due day itself is not yet past end of day.
	items, err := eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	eng = New(mem).WithClock(func() time.Time { return febNow.Add(time.Nanosecond) })
	items, err = eng.RentDueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), items[0].DueDate)
	require.Equal(t, 0, items[0].DaysOverdue)
}

func TestDashboardCountsAndWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One occupied (via lease), one vacant, one under maintenance.
	ag := f.lease(t, 50000, 5)
	vacant := &store.Shop{Building: "Main", ShopNumber: "G-03", MonthlyRent: 30000}
	require.NoError(t, f.mem.Shops().Create(ctx, vacant))
	maint := &store.Shop{Building: "Annex", ShopNumber: "A-01", Status: store.ShopUnderMaintenance}
	require.NoError(t, f.mem.Shops().Create(ctx, maint))

	// Revenue: current calendar month only.
	require.NoError(t, f.mem.Payments().Create(ctx, &store.Payment{
		AgreementID: ag.ID, Amount: 50000, PaymentDate: fixedNow,
		Month: 3, Year: 2024, Method: store.MethodCash, Status: store.PaymentPaid,
	}))
	require.NoError(t, f.mem.Payments().Create(ctx, &store.Payment{
		AgreementID: ag.ID, Amount: 50000, PaymentDate: fixedNow.AddDate(0, -1, 0),
		Month: 2, Year: 2024, Method: store.MethodCash, Status: store.PaymentPaid,
	}))

	// Expenses: trailing 30 days, so the 40-day-old one is excluded.
	require.NoError(t, f.mem.Expenses().Create(ctx, &store.Expense{
		Category: "repairs", Amount: 8000, Date: fixedNow.AddDate(0, 0, -10),
	}))
	require.NoError(t, f.mem.Expenses().Create(ctx, &store.Expense{
		Category: "repairs", Amount: 9000, Date: fixedNow.AddDate(0, 0, -40),
	}))

	stats, err := f.eng.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.OccupiedShops)
	require.Equal(t, 1, stats.VacantShops)
	// The maintenance shop exists but is not part of the headline total.
	require.Equal(t, 2, stats.TotalShops)
	require.Equal(t, 1, stats.ActiveTenants)
	require.Equal(t, int64(50000), stats.MonthlyRevenue)
	require.Equal(t, int64(8000), stats.MonthlyExpenses)
	require.Equal(t, int64(42000), stats.NetProfit)
}

func TestDashboardEmptyStore(t *testing.T) {
	f := newFixture(t)
	stats, err := f.eng.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, DashboardStats{}, stats)
}

func TestRevenueByMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ag := f.lease(t, 50000, 5)

	for month, amount := range map[int]int64{1: 50000, 2: 25000} {
		require.NoError(t, f.mem.Payments().Create(ctx, &store.Payment{
			AgreementID: ag.ID, Amount: amount,
			PaymentDate: time.Date(2024, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
			Month:       month, Year: 2024,
			Method: store.MethodCash, Status: store.PaymentPaid,
		}))
	}

	series, err := f.eng.RevenueByMonth(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, series, 12)
	require.Equal(t, int64(50000), series[0].Revenue)
	require.Equal(t, int64(25000), series[1].Revenue)
	require.Equal(t, int64(0), series[11].Revenue)
}

func TestExpiringLeases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.lease(t, 50000, 5) // ends one year out

	items, err := f.eng.ExpiringLeases(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Empty(t, items, "lease ending next year is outside a 30-day horizon")

	items, err = f.eng.ExpiringLeases(ctx, 400*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
}
