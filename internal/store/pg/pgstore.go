// Package pg implements the entity store on PostgreSQL. Referential
// integrity (cascade deletes, unique agreement numbers, one ACTIVE agreement
// per shop) is enforced by the schema in ops/migrations/sql; this package
// additionally serializes the agreement-create/shop-flip pair in one
// transaction so the invariant holds under concurrent writers too.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"rentroll.org/internal/ids"
	"rentroll.org/internal/store"
)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database behind the DSN with pool defaults tuned for
// a single-device workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection; tests inject sqlmock through it.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for readiness pings and migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() store.UserStore           { return &userStore{db: s.db} }
func (s *Store) Shops() store.ShopStore           { return &shopStore{db: s.db} }
func (s *Store) Tenants() store.TenantStore       { return &tenantStore{db: s.db} }
func (s *Store) Agreements() store.AgreementStore { return &agreementStore{db: s.db} }
func (s *Store) Payments() store.PaymentStore     { return &paymentStore{db: s.db} }
func (s *Store) Expenses() store.ExpenseStore     { return &expenseStore{db: s.db} }
func (s *Store) Activity() store.ActivityStore    { return &activityStore{db: s.db} }

// mapErr folds driver errors into the store's typed kinds: unique violations
// become ErrConflict, foreign-key violations ErrNotFound, everything else is
// a storage failure.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s", store.ErrValidation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// Users ---------------------------------------------------------------------

type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *store.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, email, name, password_hash, active, created_at)
		values ($1, lower($2), $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Active, u.CreatedAt)
	return mapErr(err)
}

const userColumns = `id, email, name, password_hash, active, last_login_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var u store.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Active, &lastLogin, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=lower($1)`, email))
}

func (s *userStore) List(ctx context.Context) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err())
}

func (s *userStore) Switch(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `update users set active=false`); err != nil {
		return mapErr(err)
	}
	res, err := tx.ExecContext(ctx, `update users set active=true where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return mapErr(tx.Commit())
}

func (s *userStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at=$2 where id=$1`, id, at.UTC())
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Shops ---------------------------------------------------------------------

type shopStore struct{ db *sql.DB }

const shopColumns = `id, building, floor, shop_number, area_sqft, monthly_rent,
	security_deposit, status, is_active, created_at, updated_at`

func scanShop(row interface{ Scan(...any) error }) (*store.Shop, error) {
	var sh store.Shop
	if err := row.Scan(&sh.ID, &sh.Building, &sh.Floor, &sh.ShopNumber, &sh.AreaSqft,
		&sh.MonthlyRent, &sh.SecurityDeposit, &sh.Status, &sh.IsActive,
		&sh.CreatedAt, &sh.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &sh, nil
}

func (s *shopStore) Create(ctx context.Context, sh *store.Shop) error {
	if sh.ID == "" {
		sh.ID = ids.New()
	}
	if sh.Status == "" {
		sh.Status = store.ShopVacant
	}
	sh.IsActive = true
	now := time.Now().UTC()
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}
	sh.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into shops(id, building, floor, shop_number, area_sqft, monthly_rent,
			security_deposit, status, is_active, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sh.ID, sh.Building, sh.Floor, sh.ShopNumber, sh.AreaSqft, sh.MonthlyRent,
		sh.SecurityDeposit, sh.Status, sh.IsActive, sh.CreatedAt, sh.UpdatedAt)
	return mapErr(err)
}

func (s *shopStore) Find(ctx context.Context, id string) (*store.Shop, error) {
	return scanShop(s.db.QueryRowContext(ctx,
		`select `+shopColumns+` from shops where id=$1`, id))
}

func (s *shopStore) List(ctx context.Context, includeInactive bool) ([]*store.Shop, error) {
	query := `select ` + shopColumns + ` from shops`
	if !includeInactive {
		query += ` where is_active`
	}
	rows, err := s.db.QueryContext(ctx, query+` order by id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.Shop
	for rows.Next() {
		sh, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, mapErr(rows.Err())
}

func (s *shopStore) Update(ctx context.Context, sh *store.Shop) error {
	sh.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update shops set building=$2, floor=$3, shop_number=$4, area_sqft=$5,
			monthly_rent=$6, security_deposit=$7, status=$8, updated_at=$9
		where id=$1
	`, sh.ID, sh.Building, sh.Floor, sh.ShopNumber, sh.AreaSqft,
		sh.MonthlyRent, sh.SecurityDeposit, sh.Status, sh.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *shopStore) UpdateStatus(ctx context.Context, id string, status store.ShopStatus) error {
	res, err := s.db.ExecContext(ctx,
		`update shops set status=$2, updated_at=now() where id=$1`, id, status)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *shopStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update shops set is_active=false, updated_at=now() where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *shopStore) Delete(ctx context.Context, id string) error {
	// agreements, payments and shop-scoped expenses cascade via FKs
	res, err := s.db.ExecContext(ctx, `delete from shops where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *shopStore) CountByStatus(ctx context.Context) (store.StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`select status, count(*) from shops where is_active group by status`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	counts := store.StatusCounts{}
	for rows.Next() {
		var status store.ShopStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapErr(err)
		}
		counts[status] = n
	}
	return counts, mapErr(rows.Err())
}

// Tenants -------------------------------------------------------------------

type tenantStore struct{ db *sql.DB }

const tenantColumns = `id, name, phone, email, address, id_proof, is_active, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*store.Tenant, error) {
	var t store.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Phone, &t.Email, &t.Address, &t.IDProof,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *tenantStore) Create(ctx context.Context, t *store.Tenant) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	t.IsActive = true
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into tenants(id, name, phone, email, address, id_proof, is_active, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.Name, t.Phone, t.Email, t.Address, t.IDProof, t.IsActive, t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

func (s *tenantStore) Find(ctx context.Context, id string) (*store.Tenant, error) {
	return scanTenant(s.db.QueryRowContext(ctx,
		`select `+tenantColumns+` from tenants where id=$1`, id))
}

func (s *tenantStore) List(ctx context.Context, activeOnly bool) ([]*store.Tenant, error) {
	query := `select ` + tenantColumns + ` from tenants`
	if activeOnly {
		query += ` where is_active`
	}
	rows, err := s.db.QueryContext(ctx, query+` order by id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err())
}

func (s *tenantStore) Update(ctx context.Context, t *store.Tenant) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update tenants set name=$2, phone=$3, email=$4, address=$5, id_proof=$6, updated_at=$7
		where id=$1
	`, t.ID, t.Name, t.Phone, t.Email, t.Address, t.IDProof, t.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *tenantStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update tenants set is_active=false, updated_at=now() where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *tenantStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from tenants where is_active`).Scan(&n)
	return n, mapErr(err)
}

// Agreements ----------------------------------------------------------------

type agreementStore struct{ db *sql.DB }

const agreementColumns = `id, agreement_number, shop_id, tenant_id, owner_user_id,
	start_date, end_date, monthly_rent, security_deposit, rent_due_day, status,
	created_at, updated_at`

func scanAgreement(row interface{ Scan(...any) error }) (*store.Agreement, error) {
	var a store.Agreement
	if err := row.Scan(&a.ID, &a.AgreementNumber, &a.ShopID, &a.TenantID, &a.OwnerUserID,
		&a.StartDate, &a.EndDate, &a.MonthlyRent, &a.SecurityDeposit, &a.RentDueDay,
		&a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *agreementStore) Create(ctx context.Context, a *store.Agreement) error {
	if a.RentDueDay < 1 || a.RentDueDay > 31 {
		return fmt.Errorf("%w: rent due day must be within 1..31", store.ErrValidation)
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Status = store.AgreementActive
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the shop row so concurrent creates for the same shop serialize.
	var shopStatus store.ShopStatus
	err = tx.QueryRowContext(ctx,
		`select status from shops where id=$1 for update`, a.ShopID).Scan(&shopStatus)
	if err != nil {
		return mapErr(err)
	}
	var exists bool
	err = tx.QueryRowContext(ctx,
		`select exists(select 1 from agreements where shop_id=$1 and status='ACTIVE')`,
		a.ShopID).Scan(&exists)
	if err != nil {
		return mapErr(err)
	}
	if exists {
		return fmt.Errorf("%w: shop %s already has an active agreement", store.ErrConflict, a.ShopID)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into agreements(id, agreement_number, shop_id, tenant_id, owner_user_id,
			start_date, end_date, monthly_rent, security_deposit, rent_due_day, status,
			created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, a.ID, a.AgreementNumber, a.ShopID, a.TenantID, a.OwnerUserID,
		a.StartDate, a.EndDate, a.MonthlyRent, a.SecurityDeposit, a.RentDueDay,
		a.Status, a.CreatedAt, a.UpdatedAt); err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`update shops set status='OCCUPIED', updated_at=now() where id=$1`, a.ShopID); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit())
}

func (s *agreementStore) Find(ctx context.Context, id string) (*store.Agreement, error) {
	return scanAgreement(s.db.QueryRowContext(ctx,
		`select `+agreementColumns+` from agreements where id=$1`, id))
}

func (s *agreementStore) FindByNumber(ctx context.Context, number string) (*store.Agreement, error) {
	return scanAgreement(s.db.QueryRowContext(ctx,
		`select `+agreementColumns+` from agreements where agreement_number=$1`, number))
}

func (s *agreementStore) ActiveForShop(ctx context.Context, shopID string) (*store.Agreement, error) {
	return scanAgreement(s.db.QueryRowContext(ctx,
		`select `+agreementColumns+` from agreements where shop_id=$1 and status='ACTIVE'`, shopID))
}

func (s *agreementStore) List(ctx context.Context) ([]*store.Agreement, error) {
	return s.query(ctx, `select `+agreementColumns+` from agreements order by id`)
}

func (s *agreementStore) ListActive(ctx context.Context) ([]*store.Agreement, error) {
	return s.query(ctx, `select `+agreementColumns+` from agreements where status='ACTIVE' order by id`)
}

func (s *agreementStore) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*store.Agreement, error) {
	return s.query(ctx,
		`select `+agreementColumns+` from agreements where status='ACTIVE' and end_date < $1 order by end_date`,
		cutoff.UTC())
}

func (s *agreementStore) query(ctx context.Context, q string, args ...any) ([]*store.Agreement, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

func (s *agreementStore) UpdateStatus(ctx context.Context, id string, status store.AgreementStatus) error {
	switch status {
	case store.AgreementActive, store.AgreementExpired, store.AgreementTerminated, store.AgreementRenewed:
	default:
		return fmt.Errorf("%w: unknown agreement status %q", store.ErrValidation, status)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	var shopID string
	err = tx.QueryRowContext(ctx,
		`select shop_id from agreements where id=$1 for update`, id).Scan(&shopID)
	if err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`update agreements set status=$2, updated_at=now() where id=$1`, id, status); err != nil {
		return mapErr(err)
	}

	// keep the shop status in lockstep with the agreement lifecycle
	shopUpdate := `
		update shops set status='VACANT', updated_at=now()
		where id=$1 and not exists
			(select 1 from agreements where shop_id=$1 and status='ACTIVE')`
	if status == store.AgreementActive {
		shopUpdate = `update shops set status='OCCUPIED', updated_at=now() where id=$1`
	}
	if _, err := tx.ExecContext(ctx, shopUpdate, shopID); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit())
}

func (s *agreementStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from agreements where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Payments ------------------------------------------------------------------

type paymentStore struct{ db *sql.DB }

const paymentColumns = `id, agreement_id, amount, payment_date, month, year,
	method, is_late, late_fee, status, reference, notes, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*store.Payment, error) {
	var p store.Payment
	if err := row.Scan(&p.ID, &p.AgreementID, &p.Amount, &p.PaymentDate, &p.Month, &p.Year,
		&p.Method, &p.IsLate, &p.LateFee, &p.Status, &p.Reference, &p.Notes, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *paymentStore) Create(ctx context.Context, p *store.Payment) error {
	if p.Amount <= 0 || p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: bad payment row", store.ErrValidation)
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into rent_payments(id, agreement_id, amount, payment_date, month, year,
			method, is_late, late_fee, status, reference, notes, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, p.ID, p.AgreementID, p.Amount, p.PaymentDate, p.Month, p.Year,
		p.Method, p.IsLate, p.LateFee, p.Status, p.Reference, p.Notes, p.CreatedAt)
	return mapErr(err)
}

func (s *paymentStore) Find(ctx context.Context, id string) (*store.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx,
		`select `+paymentColumns+` from rent_payments where id=$1`, id))
}

func (s *paymentStore) ListForAgreement(ctx context.Context, agreementID string) ([]*store.Payment, error) {
	return s.query(ctx,
		`select `+paymentColumns+` from rent_payments where agreement_id=$1 order by id`, agreementID)
}

func (s *paymentStore) ListForPeriod(ctx context.Context, agreementID string, month, year int) ([]*store.Payment, error) {
	return s.query(ctx, `
		select `+paymentColumns+` from rent_payments
		where agreement_id=$1 and month=$2 and year=$3 order by id
	`, agreementID, month, year)
}

func (s *paymentStore) query(ctx context.Context, q string, args ...any) ([]*store.Payment, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (s *paymentStore) SumForPeriod(ctx context.Context, agreementID string, month, year int) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		select coalesce(sum(amount),0) from rent_payments
		where agreement_id=$1 and month=$2 and year=$3
	`, agreementID, month, year).Scan(&total)
	return total, mapErr(err)
}

func (s *paymentStore) SumForYear(ctx context.Context, agreementID string, year int) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		select coalesce(sum(amount),0) from rent_payments
		where agreement_id=$1 and year=$2
	`, agreementID, year).Scan(&total)
	return total, mapErr(err)
}

func (s *paymentStore) SumAllForPeriod(ctx context.Context, month, year int) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		select coalesce(sum(amount),0) from rent_payments where month=$1 and year=$2
	`, month, year).Scan(&total)
	return total, mapErr(err)
}

// Expenses ------------------------------------------------------------------

type expenseStore struct{ db *sql.DB }

const expenseColumns = `id, shop_id, category, description, amount, date,
	recurring, recurrence_gap, created_at`

func scanExpense(row interface{ Scan(...any) error }) (*store.Expense, error) {
	var e store.Expense
	var shopID sql.NullString
	if err := row.Scan(&e.ID, &shopID, &e.Category, &e.Description, &e.Amount, &e.Date,
		&e.Recurring, &e.RecurrenceGap, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	if shopID.Valid {
		e.ShopID = shopID.String
	}
	return &e, nil
}

func (s *expenseStore) Create(ctx context.Context, e *store.Expense) error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: expense amount must be positive", store.ErrValidation)
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var shopID any
	if e.ShopID != "" {
		shopID = e.ShopID
	}
	_, err := s.db.ExecContext(ctx, `
		insert into expenses(id, shop_id, category, description, amount, date,
			recurring, recurrence_gap, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, shopID, e.Category, e.Description, e.Amount, e.Date,
		e.Recurring, e.RecurrenceGap, e.CreatedAt)
	return mapErr(err)
}

func (s *expenseStore) List(ctx context.Context) ([]*store.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+expenseColumns+` from expenses order by id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (s *expenseStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from expenses where id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *expenseStore) SumSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`select coalesce(sum(amount),0) from expenses where date > $1`, since.UTC()).Scan(&total)
	return total, mapErr(err)
}

func (s *expenseStore) SumByCategorySince(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		select category, coalesce(sum(amount),0) from expenses
		where date > $1 group by category
	`, since.UTC())
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var category string
		var total int64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, mapErr(err)
		}
		out[category] = total
	}
	return out, mapErr(rows.Err())
}

// Activity ------------------------------------------------------------------

type activityStore struct{ db *sql.DB }

func (s *activityStore) Append(ctx context.Context, e *store.ActivityEntry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into activity_log(id, message, occurred_at) values ($1,$2,$3)`,
		e.ID, e.Message, e.OccurredAt)
	return mapErr(err)
}

func (s *activityStore) Recent(ctx context.Context, limit int) ([]*store.ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, message, occurred_at from activity_log order by id desc limit $1
	`, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*store.ActivityEntry
	for rows.Next() {
		var e store.ActivityEntry
		if err := rows.Scan(&e.ID, &e.Message, &e.OccurredAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &e)
	}
	return out, mapErr(rows.Err())
}
