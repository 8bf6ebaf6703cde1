package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, tenant_id, code, table_number, order_status, payment_status,
       payment_method, subtotal, tax, total, invoice_printed_at, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (tenant_id, code, table_number, order_status, payment_status,
		                    payment_method, subtotal, tax, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		order.TenantID, order.Code, order.TableNumber, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.Subtotal, order.Tax, order.Total, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Another create minted the same daily code first; the caller
			// fetches a fresh one and retries.
			return domain.ErrDuplicateOrderCode
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		itemQuery := `
			INSERT INTO order_items (order_id, tenant_id, menu_name, menu_price, quantity, kitchen_status, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		err = tx.QueryRow(ctx, itemQuery,
			order.ID, order.TenantID, item.MenuName, item.MenuPrice, item.Quantity, item.KitchenStatus, item.Note,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		item.OrderID = order.ID

		for j := range item.Options {
			opt := &item.Options[j]
			err = tx.QueryRow(ctx,
				`INSERT INTO order_item_options (item_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
				item.ID, opt.Name, opt.Price,
			).Scan(&opt.ID)
			if err != nil {
				return fmt.Errorf("failed to insert item option: %w", err)
			}
			opt.ItemID = item.ID
		}
	}

	// One audit row per committed transition; creation counts as the
	// first.
	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.Status, order.Status, "customer", time.Now())
	if err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}

	return tx.Commit(ctx)
}

// querier is satisfied by both DB and Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

func (r *orderRepository) FindByID(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error) {
	return r.loadOrder(ctx, r.db, tenantID, orderID, false)
}

func (r *orderRepository) loadOrder(ctx context.Context, q querier, tenantID uuid.UUID, orderID int64, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		// Bounded wait: NOWAIT fails immediately instead of queuing, so a
		// stuck client cannot starve other staff.
		query += ` FOR UPDATE NOWAIT`
	}

	var order domain.Order
	err := q.QueryRow(ctx, query, orderID).Scan(
		&order.ID, &order.TenantID, &order.Code, &order.TableNumber, &order.Status,
		&order.PaymentStatus, &order.PaymentMethod, &order.Subtotal, &order.Tax, &order.Total,
		&order.InvoicePrintedAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrConcurrentModification
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.TenantID != tenantID {
		return nil, domain.ErrTenantMismatch
	}

	if err := r.loadItems(ctx, q, &order); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, q, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q querier, order *domain.Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, tenant_id, menu_name, menu_price, quantity, kitchen_status, note
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TenantID, &item.MenuName,
			&item.MenuPrice, &item.Quantity, &item.KitchenStatus, &item.Note); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	rows.Close()

	for i := range order.Items {
		item := &order.Items[i]
		optRows, err := q.Query(ctx,
			`SELECT id, item_id, name, price FROM order_item_options WHERE item_id = $1 ORDER BY id`, item.ID)
		if err != nil {
			return fmt.Errorf("failed to load item options: %w", err)
		}
		for optRows.Next() {
			var opt domain.OrderItemOption
			if err := optRows.Scan(&opt.ID, &opt.ItemID, &opt.Name, &opt.Price); err != nil {
				optRows.Close()
				return fmt.Errorf("failed to scan item option: %w", err)
			}
			item.Options = append(item.Options, opt)
		}
		optRows.Close()
	}
	return nil
}

func (r *orderRepository) loadPayments(ctx context.Context, q querier, order *domain.Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, tenant_id, method, amount, verified_by, verified_at, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at
	`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.TenantID, &p.Method, &p.Amount,
			&p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		order.Payments = append(order.Payments, p)
	}
	return nil
}

// buildListQuery builds the tenant-scoped listing. LIMIT and OFFSET apply
// independently: limit 0 means all rows, but an offset still skips.
func buildListQuery(tenantID uuid.UUID, filter interfaces.OrderFilter) (string, []any) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1`
	args := []any{tenantID}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND order_status = ANY($%d)", len(args))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.Format("2006-01-02"))
		query += fmt.Sprintf(" AND DATE(created_at) = $%d", len(args))
	}

	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (r *orderRepository) List(ctx context.Context, tenantID uuid.UUID, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	query, args := buildListQuery(tenantID, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.TenantID, &order.Code, &order.TableNumber, &order.Status,
			&order.PaymentStatus, &order.PaymentMethod, &order.Subtotal, &order.Tax, &order.Total,
			&order.InvoicePrintedAt, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	rows.Close()

	for _, order := range orders {
		if err := r.loadItems(ctx, r.db, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Update serializes concurrent mutations of one order behind a row lock
// held for validation, write and audit-log append. The transaction is the
// atomic unit; callers publish events only after it returns.
func (r *orderRepository) Update(ctx context.Context, tenantID uuid.UUID, orderID int64, fn interfaces.OrderUpdateFunc) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := r.loadOrder(ctx, tx, tenantID, orderID, true)
	if err != nil {
		return nil, err
	}

	logRow, err := fn(order)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET order_status = $1, payment_status = $2, payment_method = $3,
		    invoice_printed_at = $4, updated_at = $5
		WHERE id = $6
	`, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.InvoicePrintedAt, order.UpdatedAt, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		_, err = tx.Exec(ctx,
			`UPDATE order_items SET kitchen_status = $1 WHERE id = $2`,
			item.KitchenStatus, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update order item: %w", err)
		}
	}

	for i := range order.Payments {
		p := &order.Payments[i]
		if p.ID == 0 {
			err = tx.QueryRow(ctx, `
				INSERT INTO payments (order_id, tenant_id, method, amount, verified_by, verified_at, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id
			`, p.OrderID, p.TenantID, p.Method, p.Amount, p.VerifiedBy, p.VerifiedAt, p.CreatedAt).Scan(&p.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to insert payment: %w", err)
			}
			continue
		}
		_, err = tx.Exec(ctx,
			`UPDATE payments SET verified_by = $1, verified_at = $2 WHERE id = $3`,
			p.VerifiedBy, p.VerifiedAt, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
	}

	if logRow != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, note, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, logRow.OrderID, logRow.FromStatus, logRow.ToStatus, logRow.ChangedBy, logRow.Note, logRow.ChangedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to append status log: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return order, nil
}

func (r *orderRepository) StatusHistory(ctx context.Context, tenantID uuid.UUID, orderID int64) ([]*domain.StatusLog, error) {
	// Prove ownership before exposing the trail.
	if _, err := r.loadOrder(ctx, r.db, tenantID, orderID, false); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, note, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.OrderID, &log.FromStatus, &log.ToStatus,
			&log.ChangedBy, &log.Note, &log.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, nil
}

func (r *orderRepository) NextOrderCode(ctx context.Context, tenantID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	prefix := fmt.Sprintf("ORD_%s_", now.Format("20060102"))

	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE tenant_id = $1 AND code LIKE $2 AND DATE(created_at) = $3
	`, tenantID, prefix+"%", now.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count orders: %w", err)
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// isLockNotAvailable matches SQLSTATE 55P03, raised by FOR UPDATE NOWAIT
// when another transaction holds the row.
func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// isUniqueViolation matches SQLSTATE 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
