package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rentroll.org/internal/ids"
)

// Memory implements Store with in-process concurrency safety. It backs tests
// and the zero-config dev mode; the durable implementation lives in store/pg.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*User
	shops      map[string]*Shop
	tenants    map[string]*Tenant
	agreements map[string]*Agreement
	payments   map[string]*Payment
	expenses   map[string]*Expense
	activity   []*ActivityEntry
}

var (
	_ Store       = (*Memory)(nil)
	_ Snapshotter = (*Memory)(nil)
)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*User),
		shops:      make(map[string]*Shop),
		tenants:    make(map[string]*Tenant),
		agreements: make(map[string]*Agreement),
		payments:   make(map[string]*Payment),
		expenses:   make(map[string]*Expense),
	}
}

func (m *Memory) Users() UserStore           { return (*memUsers)(m) }
func (m *Memory) Shops() ShopStore           { return (*memShops)(m) }
func (m *Memory) Tenants() TenantStore       { return (*memTenants)(m) }
func (m *Memory) Agreements() AgreementStore { return (*memAgreements)(m) }
func (m *Memory) Payments() PaymentStore     { return (*memPayments)(m) }
func (m *Memory) Expenses() ExpenseStore     { return (*memExpenses)(m) }
func (m *Memory) Activity() ActivityStore    { return (*memActivity)(m) }

// Users -------------------------------------------------------------------

type memUsers Memory

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return ErrConflict
		}
	}
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUsers) Switch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range s.users {
		u.Active = false
	}
	target.Active = true
	return nil
}

func (s *memUsers) RecordLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	t := at.UTC()
	u.LastLoginAt = &t
	return nil
}

// Shops -------------------------------------------------------------------

type memShops Memory

func (s *memShops) Create(ctx context.Context, sh *Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ID == "" {
		sh.ID = ids.New()
	}
	if sh.Status == "" {
		sh.Status = ShopVacant
	}
	sh.IsActive = true
	now := time.Now().UTC()
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}
	sh.UpdatedAt = now
	cp := *sh
	s.shops[sh.ID] = &cp
	return nil
}

func (s *memShops) Find(ctx context.Context, id string) (*Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shops[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *memShops) List(ctx context.Context, includeInactive bool) ([]*Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Shop, 0, len(s.shops))
	for _, sh := range s.shops {
		if !includeInactive && !sh.IsActive {
			continue
		}
		cp := *sh
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memShops) Update(ctx context.Context, sh *Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.shops[sh.ID]
	if !ok {
		return ErrNotFound
	}
	sh.CreatedAt = existing.CreatedAt
	sh.UpdatedAt = time.Now().UTC()
	cp := *sh
	s.shops[sh.ID] = &cp
	return nil
}

func (s *memShops) UpdateStatus(ctx context.Context, id string, status ShopStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shops[id]
	if !ok {
		return ErrNotFound
	}
	sh.Status = status
	sh.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memShops) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shops[id]
	if !ok {
		return ErrNotFound
	}
	sh.IsActive = false
	sh.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memShops) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[id]; !ok {
		return ErrNotFound
	}
	delete(s.shops, id)
	// cascade: agreements for the shop, their payments, shop-scoped expenses
	for aid, a := range s.agreements {
		if a.ShopID != id {
			continue
		}
		delete(s.agreements, aid)
		for pid, p := range s.payments {
			if p.AgreementID == aid {
				delete(s.payments, pid)
			}
		}
	}
	for eid, e := range s.expenses {
		if e.ShopID == id {
			delete(s.expenses, eid)
		}
	}
	return nil
}

func (s *memShops) CountByStatus(ctx context.Context) (StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := StatusCounts{}
	for _, sh := range s.shops {
		if !sh.IsActive {
			continue
		}
		counts[sh.Status]++
	}
	return counts, nil
}

// Tenants -----------------------------------------------------------------

type memTenants Memory

func (s *memTenants) Create(ctx context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	t.IsActive = true
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *memTenants) Find(ctx context.Context, id string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTenants) List(ctx context.Context, activeOnly bool) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memTenants) Update(ctx context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *memTenants) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return ErrNotFound
	}
	t.IsActive = false
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memTenants) CountActive(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.tenants {
		if t.IsActive {
			n++
		}
	}
	return n, nil
}

// Agreements --------------------------------------------------------------

type memAgreements Memory

func (s *memAgreements) Create(ctx context.Context, a *Agreement) error {
	if a.RentDueDay < 1 || a.RentDueDay > 31 {
		return ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	shop, ok := s.shops[a.ShopID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.tenants[a.TenantID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.agreements {
		if existing.Status == AgreementActive && existing.ShopID == a.ShopID {
			return ErrConflict
		}
		if existing.AgreementNumber == a.AgreementNumber {
			return ErrConflict
		}
	}

	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Status = AgreementActive
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	// Single critical section: insert the agreement and flip the shop
	// together, so no caller can observe OCCUPIED-but-unleased or
	// ACTIVE-but-vacant.
	cp := *a
	s.agreements[a.ID] = &cp
	shop.Status = ShopOccupied
	shop.UpdatedAt = now
	return nil
}

func (s *memAgreements) Find(ctx context.Context, id string) (*Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agreements[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAgreements) FindByNumber(ctx context.Context, number string) (*Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agreements {
		if a.AgreementNumber == number {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memAgreements) ActiveForShop(ctx context.Context, shopID string) (*Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agreements {
		if a.ShopID == shopID && a.Status == AgreementActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memAgreements) List(ctx context.Context) ([]*Agreement, error) {
	return s.list(func(*Agreement) bool { return true })
}

func (s *memAgreements) ListActive(ctx context.Context) ([]*Agreement, error) {
	return s.list(func(a *Agreement) bool { return a.Status == AgreementActive })
}

func (s *memAgreements) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*Agreement, error) {
	return s.list(func(a *Agreement) bool {
		return a.Status == AgreementActive && a.EndDate.Before(cutoff)
	})
}

func (s *memAgreements) list(keep func(*Agreement) bool) ([]*Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Agreement
	for _, a := range s.agreements {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memAgreements) UpdateStatus(ctx context.Context, id string, status AgreementStatus) error {
	switch status {
	case AgreementActive, AgreementExpired, AgreementTerminated, AgreementRenewed:
	default:
		return ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agreements[id]
	if !ok {
		return ErrNotFound
	}
	if status == AgreementActive && a.Status != AgreementActive {
		for _, other := range s.agreements {
			if other.ID != id && other.ShopID == a.ShopID && other.Status == AgreementActive {
				return ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	a.Status = status
	a.UpdatedAt = now

	shop, ok := s.shops[a.ShopID]
	if !ok {
		return nil
	}
	if status == AgreementActive {
		shop.Status = ShopOccupied
		shop.UpdatedAt = now
		return nil
	}
	// terminal status: release the shop unless it was immediately re-leased
	for _, other := range s.agreements {
		if other.ID != id && other.ShopID == a.ShopID && other.Status == AgreementActive {
			return nil
		}
	}
	shop.Status = ShopVacant
	shop.UpdatedAt = now
	return nil
}

func (s *memAgreements) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agreements[id]; !ok {
		return ErrNotFound
	}
	delete(s.agreements, id)
	for pid, p := range s.payments {
		if p.AgreementID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

// Payments ----------------------------------------------------------------

type memPayments Memory

func (s *memPayments) Create(ctx context.Context, p *Payment) error {
	if p.Amount <= 0 || p.Month < 1 || p.Month > 12 {
		return ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agreements[p.AgreementID]; !ok {
		return ErrNotFound
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *memPayments) Find(ctx context.Context, id string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPayments) ListForAgreement(ctx context.Context, agreementID string) ([]*Payment, error) {
	return s.list(func(p *Payment) bool { return p.AgreementID == agreementID })
}

func (s *memPayments) ListForPeriod(ctx context.Context, agreementID string, month, year int) ([]*Payment, error) {
	return s.list(func(p *Payment) bool {
		return p.AgreementID == agreementID && p.Month == month && p.Year == year
	})
}

func (s *memPayments) list(keep func(*Payment) bool) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Payment
	for _, p := range s.payments {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memPayments) SumForPeriod(ctx context.Context, agreementID string, month, year int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, p := range s.payments {
		if p.AgreementID == agreementID && p.Month == month && p.Year == year {
			total += p.Amount
		}
	}
	return total, nil
}

func (s *memPayments) SumForYear(ctx context.Context, agreementID string, year int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, p := range s.payments {
		if p.AgreementID == agreementID && p.Year == year {
			total += p.Amount
		}
	}
	return total, nil
}

func (s *memPayments) SumAllForPeriod(ctx context.Context, month, year int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, p := range s.payments {
		if p.Month == month && p.Year == year {
			total += p.Amount
		}
	}
	return total, nil
}

// Expenses ----------------------------------------------------------------

type memExpenses Memory

func (s *memExpenses) Create(ctx context.Context, e *Expense) error {
	if e.Amount <= 0 {
		return ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ShopID != "" {
		if _, ok := s.shops[e.ShopID]; !ok {
			return ErrNotFound
		}
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.expenses[e.ID] = &cp
	return nil
}

func (s *memExpenses) List(ctx context.Context) ([]*Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memExpenses) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *memExpenses) SumSince(ctx context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.expenses {
		if e.Date.After(since) {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *memExpenses) SumByCategorySince(ctx context.Context, since time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, e := range s.expenses {
		if e.Date.After(since) {
			out[e.Category] += e.Amount
		}
	}
	return out, nil
}

// Activity ----------------------------------------------------------------

type memActivity Memory

func (s *memActivity) Append(ctx context.Context, e *ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	cp := *e
	s.activity = append(s.activity, &cp)
	return nil
}

func (s *memActivity) Recent(ctx context.Context, limit int) ([]*ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.activity)
	if limit > n {
		limit = n
	}
	out := make([]*ActivityEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *s.activity[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Snapshot ----------------------------------------------------------------

func (m *Memory) Export(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &Snapshot{TakenAt: time.Now().UTC()}
	for _, u := range m.users {
		cp := *u
		snap.Users = append(snap.Users, &cp)
	}
	for _, sh := range m.shops {
		cp := *sh
		snap.Shops = append(snap.Shops, &cp)
	}
	for _, t := range m.tenants {
		cp := *t
		snap.Tenants = append(snap.Tenants, &cp)
	}
	for _, a := range m.agreements {
		cp := *a
		snap.Agreements = append(snap.Agreements, &cp)
	}
	for _, p := range m.payments {
		cp := *p
		snap.Payments = append(snap.Payments, &cp)
	}
	for _, e := range m.expenses {
		cp := *e
		snap.Expenses = append(snap.Expenses, &cp)
	}
	for _, e := range m.activity {
		cp := *e
		snap.Activity = append(snap.Activity, &cp)
	}
	return snap, nil
}

func (m *Memory) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return ErrValidation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*User, len(snap.Users))
	m.shops = make(map[string]*Shop, len(snap.Shops))
	m.tenants = make(map[string]*Tenant, len(snap.Tenants))
	m.agreements = make(map[string]*Agreement, len(snap.Agreements))
	m.payments = make(map[string]*Payment, len(snap.Payments))
	m.expenses = make(map[string]*Expense, len(snap.Expenses))
	m.activity = nil
	for _, u := range snap.Users {
		cp := *u
		m.users[cp.ID] = &cp
	}
	for _, sh := range snap.Shops {
		cp := *sh
		m.shops[cp.ID] = &cp
	}
	for _, t := range snap.Tenants {
		cp := *t
		m.tenants[cp.ID] = &cp
	}
	for _, a := range snap.Agreements {
		cp := *a
		m.agreements[cp.ID] = &cp
	}
	for _, p := range snap.Payments {
		cp := *p
		m.payments[cp.ID] = &cp
	}
	for _, e := range snap.Expenses {
		cp := *e
		m.expenses[cp.ID] = &cp
	}
	for _, e := range snap.Activity {
		cp := *e
		m.activity = append(m.activity, &cp)
	}
	sort.Slice(m.activity, func(i, j int) bool { return m.activity[i].ID < m.activity[j].ID })
	return nil
}
