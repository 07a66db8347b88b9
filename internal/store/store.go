package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a versioned row changed since it was read
	ErrConflict = errors.New("record was modified concurrently")
	// ErrInsufficientStock is returned when a reservation exceeds available stock
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository is the set of queries the services run, inside or outside a transaction
type Repository interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	GetDiscount(ctx context.Context, id int64) (*models.Discount, error)
	GetTax(ctx context.Context, id int64) (*models.Tax, error)
	GetServiceCharge(ctx context.Context, id int64) (*models.ServiceCharge, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	UpdateOrderItem(ctx context.Context, item *models.OrderItem) error
	DeleteOrderItem(ctx context.Context, id int64) error

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, id int64) (bool, error)

	CreateGiftCard(ctx context.Context, card *models.GiftCard) error
	GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error)
	GetGiftCardForUpdate(ctx context.Context, id int64) (*models.GiftCard, error)
	UpdateGiftCard(ctx context.Context, card *models.GiftCard) error

	CreateRefund(ctx context.Context, refund *models.Refund) error
	GetRefundForUpdate(ctx context.Context, id int64) (*models.Refund, error)
	UpdateRefund(ctx context.Context, refund *models.Refund) error
	ListRefundsByOrderID(ctx context.Context, orderID int64) ([]models.Refund, error)

	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Transactor runs a function against a Repository bound to one transaction
type Transactor interface {
	Repository
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// Queries implements Repository on top of a DB handle or a transaction
type Queries struct {
	q sqlx.ExtContext
}

type Store struct {
	*Queries
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{Queries: &Queries{q: db}, db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn in a transaction, committing when fn returns nil
func (s *Store) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// selectIn runs query with an IN (?) clause bound to ids
func selectIn[T any](ctx context.Context, q sqlx.ExtContext, query string, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	query = q.Rebind(query)

	var rows []T
	err = sqlx.SelectContext(ctx, q, &rows, query, args...)
	return rows, err
}

func uniqueIDs(ids []*int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		out = append(out, *id)
	}
	return out
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
