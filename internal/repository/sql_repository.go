package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/justuche224/swift/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

// Repository is the SQL order store. Postgres (lib/pq or pgx) is the
// production target; SQLite backs tests and single node setups.
type Repository struct {
	db      *sql.DB
	dialect dialect
}

var _ OrderRepository = (*Repository)(nil)

func NewPostgresRepository(cred *Credentials) (*Repository, error) {
	driver := cred.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pgx" {
		return nil, fmt.Errorf("unsupported postgres driver %q", driver)
	}

	dsn := cred.URL
	if dsn == "" {
		sslMode := cred.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cred.Host,
			cred.Port,
			cred.User,
			cred.Password,
			cred.DBName,
			sslMode)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Repository{db: db, dialect: dialectPostgres}, nil
}

// NewSQLiteRepository opens path, or a private in-memory database for ":memory:".
func NewSQLiteRepository(path string) (*Repository, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Repository{db: db, dialect: dialectSQLite}, nil
}

// DB exposes the pool so other stores can share it.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `id, tracking_code, recipient_name, recipient_email, recipient_phone,
	recipient_address, recipient_city, recipient_zip, gift_message, total_amount, status,
	estimated_arrival, created_at, updated_at`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order, initial domain.StatusChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		order.ID,
		order.TrackingCode,
		order.Recipient.Name,
		order.Recipient.Email,
		order.Recipient.Phone,
		order.Recipient.Address,
		nullString(order.Recipient.City),
		nullString(order.Recipient.ZipCode),
		nullString(order.Recipient.GiftMessage),
		order.TotalAmount.StringFixed(2),
		string(order.Status),
		order.EstimatedArrival.UTC(),
		order.CreatedAt.UTC(),
		order.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTrackingCode
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx, `INSERT INTO order_items
			(id, order_id, product_id, name, image, unit_price, quantity, variant, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID,
			order.ID,
			item.ProductID,
			item.Name,
			nullString(item.Image),
			item.UnitPrice.StringFixed(2),
			item.Quantity,
			nullString(item.Variant),
			i,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateTrackingCode
			}
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	if err := insertHistory(ctx, tx, order.ID, initial); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.db, "id", id)
}

func (r *Repository) GetOrderByTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	return getOrder(ctx, r.db, "tracking_code", code)
}

// ListOrders returns one page of orders, newest first, without items.
func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	where := ""
	var args []any
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = ` WHERE LOWER(tracking_code) LIKE $1 ESCAPE '\'
			OR LOWER(recipient_name) LIKE $1 ESCAPE '\'
			OR LOWER(recipient_email) LIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, n+1, n+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, filter.PageSize)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update status: %w", err)
	}
	defer tx.Rollback()

	lock := ""
	if r.dialect == dialectPostgres {
		lock = " FOR UPDATE"
	}
	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`+lock, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(change.To), change.ChangedAt.UTC(), id); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	change.From = domain.OrderStatus(current)
	if err := insertHistory(ctx, tx, id, change); err != nil {
		return nil, err
	}

	order, err := getOrder(ctx, tx, "id", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update status: %w", err)
	}
	return order, nil
}

// DeleteOrder removes the order; items and history go with it through the
// foreign key cascade.
func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, from_status, to_status, actor, changed_at
		FROM order_status_history WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var (
			c    domain.StatusChange
			from sql.NullString
			to   string
		)
		if err := rows.Scan(&c.ID, &c.OrderID, &from, &to, &c.Actor, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		c.From = domain.OrderStatus(from.String)
		c.To = domain.OrderStatus(to)
		c.ChangedAt = c.ChangedAt.UTC()
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return history, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID string, c domain.StatusChange) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO order_status_history
		(order_id, from_status, to_status, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID,
		nullString(string(c.From)),
		string(c.To),
		c.Actor,
		c.ChangedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func getOrder(ctx context.Context, q querier, column, value string) (*domain.Order, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)
	if err != nil {
		return nil, fmt.Errorf("query order by %s: %w", column, err)
	}
	var order *domain.Order
	for rows.Next() {
		if order, err = scanOrder(rows); err != nil {
			rows.Close()
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()
	if order == nil {
		return nil, ErrOrderNotFound
	}

	items, err := orderItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func orderItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, order_id, product_id, name, image, unit_price, quantity, variant
		FROM order_items WHERE order_id = $1 ORDER BY position, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var (
			item           domain.OrderItem
			image, variant sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&image,
			&item.UnitPrice,
			&item.Quantity,
			&variant,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Image = image.String
		item.Variant = variant.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func scanOrder(rows *sql.Rows) (*domain.Order, error) {
	var (
		o              domain.Order
		city, zip, msg sql.NullString
		status         string
	)
	if err := rows.Scan(
		&o.ID,
		&o.TrackingCode,
		&o.Recipient.Name,
		&o.Recipient.Email,
		&o.Recipient.Phone,
		&o.Recipient.Address,
		&city,
		&zip,
		&msg,
		&o.TotalAmount,
		&status,
		&o.EstimatedArrival,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}
	o.Recipient.City = city.String
	o.Recipient.ZipCode = zip.String
	o.Recipient.GiftMessage = msg.String
	o.Status = domain.OrderStatus(status)
	o.EstimatedArrival = o.EstimatedArrival.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
