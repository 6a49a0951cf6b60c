package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type RepoInterface interface {
	OrderRepository
	OutboxRepository
	RunMigrations(*Credentials) error
	Close() error
}

type orderPlacedPayload struct {
	OrderID     uuid.UUID          `json:"order_id"`
	UserID      string             `json:"user_id"`
	Lines       []domain.OrderLine `json:"lines"`
	TotalAmount string             `json:"total_amount"`
	Status      domain.OrderStatus `json:"status"`
	PlacedAt    time.Time          `json:"placed_at"`
}

type statusChangedPayload struct {
	OrderID   uuid.UUID          `json:"order_id"`
	UserID    string             `json:"user_id"`
	From      domain.OrderStatus `json:"from"`
	To        domain.OrderStatus `json:"to"`
	ChangedAt time.Time          `json:"changed_at"`
}
