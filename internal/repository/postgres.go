// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/Snoopyx126/Atelier4-sub002/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrEmailTaken возвращается при попытке зарегистрировать уже существующий email.
var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrAccountNotFound возвращается, если учётная запись не найдена.
	ErrAccountNotFound = errors.New("account not found")
	// ErrOrderNotFound возвращается, если монтаж не найден.
	ErrOrderNotFound = errors.New("montage not found")
	// ErrInvoiceNumberTaken возвращается при попытке создать фактуру с занятым номером.
	ErrInvoiceNumberTaken = errors.New("invoice number already used")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
// Пул создаётся один раз на процесс и передаётся дальше явно, без глобального состояния.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при serialization failure, deadlock и сетевых сбоях.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const accountColumns = `id, email, password_hash, company_name, siret, phone, address, zip_city, role, verified, shops, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CompanyName, &a.SIRET,
		&a.Phone, &a.Address, &a.ZipCity, &a.Role, &a.Verified, &a.Shops, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount создаёт новую учётную запись.
func (r *PostgresRepository) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash, company_name, siret, phone, address, zip_city, role, verified, shops)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		a.Email, a.PasswordHash, a.CompanyName, a.SIRET, a.Phone, a.Address,
		a.ZipCity, string(a.Role), a.Verified, a.Shops,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrEmailTaken, a.Email)
		}
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

// GetAccountByEmail возвращает учётную запись по email. Поиск чувствителен к регистру.
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		email,
	)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return a, nil
}

// GetAccountByID возвращает учётную запись по идентификатору.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return a, nil
}

// ListAccounts возвращает все учётные записи, новые первыми.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return accounts, nil
}

// GetAccountNames возвращает названия компаний для указанных идентификаторов.
// Неизвестные идентификаторы молча пропускаются: ссылки менеджера слабые.
func (r *PostgresRepository) GetAccountNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT company_name FROM accounts WHERE id = ANY($1) ORDER BY company_name`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select account names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan account name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return names, nil
}

// AccountUpdate описывает частичное обновление учётной записи.
// Нулевой указатель означает «поле не менять».
type AccountUpdate struct {
	Email        *string
	PasswordHash []byte
	CompanyName  *string
	SIRET        *string
	Phone        *string
	Address      *string
	ZipCity      *string
}

// UpdateAccount применяет частичное обновление и возвращает обновлённую запись.
func (r *PostgresRepository) UpdateAccount(ctx context.Context, id int64, upd AccountUpdate) (*model.Account, error) {
	set := make([]string, 0, 7)
	args := make([]any, 0, 8)
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.PasswordHash != nil {
		add("password_hash", upd.PasswordHash)
	}
	if upd.CompanyName != nil {
		add("company_name", *upd.CompanyName)
	}
	if upd.SIRET != nil {
		add("siret", *upd.SIRET)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.ZipCity != nil {
		add("zip_city", *upd.ZipCity)
	}

	if len(set) == 0 {
		return r.GetAccountByID(ctx, id)
	}

	query := `UPDATE accounts SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 RETURNING ` + accountColumns

	var a *model.Account
	err := r.withRetry(ctx, func() error {
		var scanErr error
		a, scanErr = scanAccount(r.pool.QueryRow(ctx, query, args...))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	return a, nil
}

// SetAccountVerified выставляет флаг верификации учётной записи.
func (r *PostgresRepository) SetAccountVerified(ctx context.Context, id int64, verified bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET verified = $2 WHERE id = $1`,
		id, verified,
	)
	if err != nil {
		return fmt.Errorf("set account verified: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const orderColumns = `id, owner_id, owner_name, description, frame, reference, category, glass_types,
	urgency, diamond_cut_type, engraving_count, shape_change, photo_ref, created_by, status, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.OwnerID, &o.OwnerName, &o.Description, &o.Frame,
		&o.Reference, &o.Category, &o.GlassTypes, &o.Urgency, &o.DiamondCutType,
		&o.EngravingCount, &o.ShapeChange, &o.PhotoRef, &o.CreatedBy, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder сохраняет новый монтаж и возвращает запись с присвоенным идентификатором.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO montages (owner_id, owner_name, description, frame, reference, category,
		                       glass_types, urgency, diamond_cut_type, engraving_count,
		                       shape_change, photo_ref, created_by, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING `+orderColumns,
		o.OwnerID, o.OwnerName, o.Description, o.Frame, o.Reference, o.Category,
		o.GlassTypes, o.Urgency, o.DiamondCutType, o.EngravingCount,
		o.ShapeChange, o.PhotoRef, string(o.CreatedBy), string(o.Status),
	)

	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("create montage: %w", err)
	}

	return created, nil
}

// GetOrderByID возвращает монтаж по идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM montages WHERE id = $1`,
		id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get montage: %w", err)
	}

	return o, nil
}

// OrderUpdate описывает частичное обновление монтажа.
// Нулевой указатель означает «поле не менять»; указатель на пустое значение — записать пустое.
type OrderUpdate struct {
	OwnerID        *int64
	OwnerName      *string
	Description    *string
	Frame          *string
	Reference      *string
	Category       *string
	GlassTypes     *[]string
	Urgency        *string
	DiamondCutType *string
	EngravingCount *int
	ShapeChange    *bool
	PhotoRef       *string
	Status         *model.OrderStatus
}

// UpdateOrder применяет частичное обновление и возвращает обновлённый монтаж.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error) {
	set := make([]string, 0, 13)
	args := make([]any, 0, 14)
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.OwnerID != nil {
		add("owner_id", *upd.OwnerID)
	}
	if upd.OwnerName != nil {
		add("owner_name", *upd.OwnerName)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Frame != nil {
		add("frame", *upd.Frame)
	}
	if upd.Reference != nil {
		add("reference", *upd.Reference)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.GlassTypes != nil {
		add("glass_types", *upd.GlassTypes)
	}
	if upd.Urgency != nil {
		add("urgency", *upd.Urgency)
	}
	if upd.DiamondCutType != nil {
		add("diamond_cut_type", *upd.DiamondCutType)
	}
	if upd.EngravingCount != nil {
		add("engraving_count", *upd.EngravingCount)
	}
	if upd.ShapeChange != nil {
		add("shape_change", *upd.ShapeChange)
	}
	if upd.PhotoRef != nil {
		add("photo_ref", *upd.PhotoRef)
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}

	if len(set) == 0 {
		return r.GetOrderByID(ctx, id)
	}

	query := `UPDATE montages SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 RETURNING ` + orderColumns

	var o *model.Order
	err := r.withRetry(ctx, func() error {
		var scanErr error
		o, scanErr = scanOrder(r.pool.QueryRow(ctx, query, args...))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update montage: %w", err)
	}

	return o, nil
}

// DeleteOrder безвозвратно удаляет монтаж.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM montages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete montage: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select montages: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan montage: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// ListOrdersByOwner возвращает монтажи владельца, новые первыми.
func (r *PostgresRepository) ListOrdersByOwner(ctx context.Context, ownerID int64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM montages WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
}

// ListOrders возвращает все монтажи, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM montages ORDER BY created_at DESC`,
	)
}

const invoiceColumns = `id, owner_id, number, total_ht, total_ttc, paid, payment_status, order_refs, items, document_url, created_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Number, &inv.TotalHTCents, &inv.TotalTTCCents,
		&inv.PaidCents, &inv.PaymentStatus, &inv.OrderRefs, &inv.Items, &inv.DocumentURL, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvoice сохраняет новую фактуру.
func (r *PostgresRepository) CreateInvoice(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	items := inv.Items
	if len(items) == 0 {
		items = []byte(`[]`)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (owner_id, number, total_ht, total_ttc, paid, payment_status, order_refs, items, document_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+invoiceColumns,
		inv.OwnerID, inv.Number, inv.TotalHTCents, inv.TotalTTCCents, inv.PaidCents,
		inv.PaymentStatus, inv.OrderRefs, items, inv.DocumentURL,
	)

	created, err := scanInvoice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNumberTaken, inv.Number)
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	return created, nil
}

func (r *PostgresRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]model.Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return invoices, nil
}

// ListInvoicesByOwner возвращает фактуры владельца, новые первыми.
func (r *PostgresRepository) ListInvoicesByOwner(ctx context.Context, ownerID int64) ([]model.Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
}

// ListInvoices возвращает все фактуры, новые первыми.
func (r *PostgresRepository) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	return r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC`,
	)
}
