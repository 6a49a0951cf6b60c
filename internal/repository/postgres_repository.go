package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

const orderColumns = `id, owner_user_id, lines, total_amount, shipping_info, status, placed_at, updated_at`

type Repository struct {
	db *sql.DB
}

var _ RepoInterface = (*Repository)(nil)

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	logging.New("repository").Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder stores the order and its order.placed event in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping info: %w", err)
	}
	payload, err := json.Marshal(orderPlacedPayload{
		OrderID:     order.ID,
		UserID:      order.OwnerUserID,
		Lines:       order.Lines,
		TotalAmount: order.TotalAmount.String(),
		Status:      order.Status,
		PlacedAt:    order.PlacedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.OwnerUserID,
		linesJSON,
		order.TotalAmount,
		shippingJSON,
		order.Status,
		order.PlacedAt,
		order.UpdatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, order.ID)
		}
		return unavailable("insert order", insertErr)
	}

	if err := insertEvent(ctx, tx, order.ID, EventOrderPlaced, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit order", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, unavailable("query order by id", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
	          FROM orders WHERE owner_user_id = $1 ORDER BY placed_at DESC, id`
	return r.queryOrders(ctx, query, ownerID)
}

// ListOrders returns every order newest first, narrowed by filter.Status.
// filter.Search is applied by the caller because it matches on user fields
// that live outside this database.
func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY placed_at DESC, id`

	return r.queryOrders(ctx, query, args...)
}

// UpdateStatus moves the order from expected to next only if it is still in
// expected. A lost race yields domain.ErrConflict.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	query := `UPDATE orders SET status = $3, updated_at = $4
	          WHERE id = $1 AND status = $2
	          RETURNING ` + orderColumns
	order, err := scanOrder(tx.QueryRowContext(ctx, query, id, expected, next, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMiss(ctx, tx, id, expected)
	}
	if err != nil {
		return nil, unavailable("update order status", err)
	}

	payload, err := json.Marshal(statusChangedPayload{
		OrderID:   order.ID,
		UserID:    order.OwnerUserID,
		From:      expected,
		To:        next,
		ChangedAt: order.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status event: %w", err)
	}
	if err := insertEvent(ctx, tx, order.ID, EventOrderStatusChanged, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit status", err)
	}
	return order, nil
}

func (r *Repository) explainMiss(ctx context.Context, tx *sql.Tx, id uuid.UUID, expected domain.OrderStatus) error {
	var current domain.OrderStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return unavailable("re-read order status", err)
	}
	return fmt.Errorf("%w: expected %s, found %s", domain.ErrConflict, expected, current)
}

func (r *Repository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, unavailable("count orders", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int, len(domain.AllStatuses))
	for _, st := range domain.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			st domain.OrderStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, unavailable("scan count row", err)
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("row iteration error", err)
	}
	return counts, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event %d processed: %w", id, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query orders", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, unavailable("scan order row", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("row iteration error", err)
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		order        domain.Order
		linesJSON    []byte
		shippingJSON []byte
	)
	if err := s.Scan(
		&order.ID,
		&order.OwnerUserID,
		&linesJSON,
		&order.TotalAmount,
		&shippingJSON,
		&order.Status,
		&order.PlacedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingInfo); err != nil {
		return nil, fmt.Errorf("unmarshal shipping info: %w", err)
	}
	return &order, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, aggregateID uuid.UUID, eventType string, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		aggregateID.String(), eventType, payload)
	if err != nil {
		return unavailable("insert outbox event", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
