// Package reports builds the cross-cutting read-only views: dashboard
// aggregates, overdue-rent reminders, and the financial/lease/activity
// projections. Like the rent ledger, everything here is recomputed from the
// store on demand; there are no cached derived tables.
package reports

import (
	"context"
	"fmt"
	"time"

	"rentroll.org/internal/store"
)

// DashboardStats is the headline aggregate for the landing view.
//
// TotalShops counts vacant plus occupied units only, and MonthlyExpenses uses
// a trailing 30-day window while MonthlyRevenue uses the calendar month. Both
// quirks are inherited behavior the UI depends on; do not "fix" them here.
type DashboardStats struct {
	TotalShops      int   `json:"total_shops"`
	VacantShops     int   `json:"vacant_shops"`
	OccupiedShops   int   `json:"occupied_shops"`
	ActiveTenants   int   `json:"active_tenants"`
	MonthlyRevenue  int64 `json:"monthly_revenue"`
	MonthlyExpenses int64 `json:"monthly_expenses"`
	NetProfit       int64 `json:"net_profit"`
}

// Reminder flags an ACTIVE agreement whose current period is overdue.
type Reminder struct {
	Agreement   *store.Agreement `json:"agreement"`
	Shop        *store.Shop      `json:"shop"`
	Tenant      *store.Tenant    `json:"tenant"`
	DueDate     time.Time        `json:"due_date"`
	DaysOverdue int              `json:"days_overdue"`
}

// MonthRevenue is one point of the revenue-by-month series.
type MonthRevenue struct {
	Month   int   `json:"month"`
	Year    int   `json:"year"`
	Revenue int64 `json:"revenue"`
}

// Engine composes store queries into the derived views.
type Engine struct {
	store store.Store
	now   func() time.Time

	// RemindPartial controls whether periods with a partial payment still
	// produce a reminder. The inherited behavior only reminds when zero
	// payments exist for the period; keep false to preserve it.
	RemindPartial bool
}

// New creates an engine reading from st.
func New(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// WithClock overrides the engine clock for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Dashboard computes the headline stats. Store failures propagate; empty data
// legitimately yields zero stats.
func (e *Engine) Dashboard(ctx context.Context) (DashboardStats, error) {
	counts, err := e.store.Shops().CountByStatus(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count shops: %w", err)
	}
	tenants, err := e.store.Tenants().CountActive(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count tenants: %w", err)
	}

	now := e.now().UTC()
	revenue, err := e.store.Payments().SumAllForPeriod(ctx, int(now.Month()), now.Year())
	if err != nil {
		return DashboardStats{}, fmt.Errorf("sum revenue: %w", err)
	}
	expenses, err := e.store.Expenses().SumSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return DashboardStats{}, fmt.Errorf("sum expenses: %w", err)
	}

	stats := DashboardStats{
		VacantShops:     counts[store.ShopVacant],
		OccupiedShops:   counts[store.ShopOccupied],
		ActiveTenants:   tenants,
		MonthlyRevenue:  revenue,
		MonthlyExpenses: expenses,
	}
	stats.TotalShops = stats.VacantShops + stats.OccupiedShops
	stats.NetProfit = stats.MonthlyRevenue - stats.MonthlyExpenses
	return stats, nil
}

// RentDueReminders scans every ACTIVE agreement. An agreement is flagged when
// "now" is past the end of its due day in the current month and no payment
// row exists yet for the current period (any payment, even partial, clears
// the reminder unless RemindPartial is set).
func (e *Engine) RentDueReminders(ctx context.Context) ([]Reminder, error) {
	active, err := e.store.Agreements().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active agreements: %w", err)
	}

	now := e.now().UTC()
	month, year := int(now.Month()), now.Year()

	var out []Reminder
	for _, a := range active {
		due := dueDate(year, time.Month(month), a.RentDueDay)
		if !now.After(endOfDay(due)) {
			continue
		}
		payments, err := e.store.Payments().ListForPeriod(ctx, a.ID, month, year)
		if err != nil {
			return nil, fmt.Errorf("list payments for %s: %w", a.ID, err)
		}
		if len(payments) > 0 {
			if !e.RemindPartial {
				continue
			}
			var paid int64
			for _, p := range payments {
				paid += p.Amount
			}
			if paid >= a.MonthlyRent {
				continue
			}
		}

		shop, err := e.store.Shops().Find(ctx, a.ShopID)
		if err != nil {
			return nil, fmt.Errorf("find shop %s: %w", a.ShopID, err)
		}
		tenant, err := e.store.Tenants().Find(ctx, a.TenantID)
		if err != nil {
			return nil, fmt.Errorf("find tenant %s: %w", a.TenantID, err)
		}
		out = append(out, Reminder{
			Agreement:   a,
			Shop:        shop,
			Tenant:      tenant,
			DueDate:     due,
			DaysOverdue: wholeDaysBetween(due, now),
		})
	}
	return out, nil
}

// RevenueByMonth returns the system-wide payment total for each month of the
// given year, in month order.
func (e *Engine) RevenueByMonth(ctx context.Context, year int) ([]MonthRevenue, error) {
	out := make([]MonthRevenue, 0, 12)
	for month := 1; month <= 12; month++ {
		total, err := e.store.Payments().SumAllForPeriod(ctx, month, year)
		if err != nil {
			return nil, fmt.Errorf("sum revenue %d/%d: %w", month, year, err)
		}
		out = append(out, MonthRevenue{Month: month, Year: year, Revenue: total})
	}
	return out, nil
}

// ExpensesByCategory aggregates expenses over the trailing window.
func (e *Engine) ExpensesByCategory(ctx context.Context, window time.Duration) (map[string]int64, error) {
	return e.store.Expenses().SumByCategorySince(ctx, e.now().UTC().Add(-window))
}

// ExpiringLeases lists still-ACTIVE agreements ending within the horizon.
func (e *Engine) ExpiringLeases(ctx context.Context, horizon time.Duration) ([]*store.Agreement, error) {
	return e.store.Agreements().ExpiringBefore(ctx, e.now().UTC().Add(horizon))
}

// RecentActivity returns the newest audit-trail entries.
func (e *Engine) RecentActivity(ctx context.Context, limit int) ([]*store.ActivityEntry, error) {
	return e.store.Activity().Recent(ctx, limit)
}

// dueDate clamps the configured due day to the month's length, so a due day
// of 31 lands on Feb 28/29 rather than rolling into March.
func dueDate(year int, month time.Month, day int) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// wholeDaysBetween counts calendar days from a to b, ignoring time of day.
func wholeDaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
