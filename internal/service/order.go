package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesa-cafe/api/internal/cart"
	"github.com/mesa-cafe/api/internal/enum"
	"github.com/mesa-cafe/api/internal/store"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyCart        = errors.New("items are required")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidItemID    = errors.New("invalid item_id")
	ErrItemNotFound     = errors.New("menu item not found")
	ErrItemUnavailable  = errors.New("menu item is not available")
	ErrTableNotFound    = errors.New("table not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotEditable = errors.New("order can no longer be edited")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and edit orders.
// Satisfied by *store.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (store.Table, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (store.MenuItemForOrder, error)
	GetNextOrderSeq(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error)
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderTotals(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can bind store instances to its own transactions.
type NewOrderStore func(db store.DBTX) OrderStore

// LineRequest is one submitted order line. Quantity and note come from the
// client's cart; the item snapshot (price, name, category, image) is taken
// server-side from the menu at submission time.
type LineRequest struct {
	ItemID   string
	Quantity int32
	Note     string
}

// CreateOrderRequest is the validated input for creating an order.
// CreatedBy is unset for customer QR submissions.
type CreateOrderRequest struct {
	TableID   uuid.UUID
	CreatedBy pgtype.UUID
	Notes     string
	Lines     []LineRequest
}

// ReplaceItemsRequest replaces the full items array of an existing order
// (admin edit modal). Lines that keep an item already on the order retain
// that item's original price snapshot; new items are priced from the menu.
type ReplaceItemsRequest struct {
	OrderID uuid.UUID
	Notes   string
	Lines   []LineRequest
}

// OrderResult is the full created or updated order with its items.
type OrderResult struct {
	Order store.Order
	Items []store.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates the submitted lines against the menu, snapshots
// prices into a line set, and persists the order atomically. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations
// (concurrent transactions reading the same daily sequence).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes validation and the full order creation in a single
// transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	txStore := s.newStore(tx)

	if _, err := txStore.GetTable(ctx, req.TableID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	set, err := buildLineSet(ctx, txStore, req.Lines, nil)
	if err != nil {
		return nil, err
	}

	seq, err := txStore.GetNextOrderSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order seq: %w", err)
	}
	orderNumber := fmt.Sprintf("MESA-%s-%03d", time.Now().Format("20060102"), seq)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := txStore.CreateOrder(ctx, store.CreateOrderParams{
		OrderNumber: orderNumber,
		TableID:     req.TableID,
		Notes:       notes,
		Total:       decimalToNumeric(set.Total()),
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items, err := insertLines(ctx, txStore, order.ID, set)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// ReplaceItems swaps the full items array of an editable order and
// recomputes its total. The replacement is atomic: on any failure the
// original items remain untouched and the caller can resubmit.
func (s *OrderService) ReplaceItems(ctx context.Context, req ReplaceItemsRequest) (*OrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	txStore := s.newStore(tx)

	order, err := txStore.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	switch order.Status {
	case enum.OrderStatusNew, enum.OrderStatusPreparing:
	default:
		return nil, ErrOrderNotEditable
	}

	// Items already on the order keep their original price snapshot.
	existing, err := txStore.ListOrderItemsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	prior := make(map[uuid.UUID]store.OrderItem, len(existing))
	for _, it := range existing {
		prior[it.ItemID] = it
	}

	set, err := buildLineSet(ctx, txStore, req.Lines, prior)
	if err != nil {
		return nil, err
	}

	if err := txStore.DeleteOrderItems(ctx, req.OrderID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}

	items, err := insertLines(ctx, txStore, req.OrderID, set)
	if err != nil {
		return nil, err
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}
	updated, err := txStore.UpdateOrderTotals(ctx, store.UpdateOrderTotalsParams{
		ID:    req.OrderID,
		Notes: notes,
		Total: decimalToNumeric(set.Total()),
	})
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: updated, Items: items}, nil
}

// buildLineSet validates each submitted line and assembles the line set.
// Duplicate item IDs in a request merge into one line: quantities add, the
// first note wins and the snapshot is never overwritten. prior maps item IDs
// to persisted order items whose price snapshots must be preserved (nil for
// new orders).
func buildLineSet(ctx context.Context, st OrderStore, lines []LineRequest, prior map[uuid.UUID]store.OrderItem) (*cart.LineSet, error) {
	set := cart.New()
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidItemID)
		}

		if old, ok := prior[itemID]; ok {
			set.Add(cart.Item{
				ID:       itemID,
				Name:     old.Name,
				Price:    numericToDecimal(old.Price),
				Category: old.Category,
				ImageURL: old.ImageURL.String,
			}, line.Quantity, line.Note)
			continue
		}

		mi, err := st.GetMenuItemForOrder(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !mi.IsAvailable {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrItemUnavailable)
		}
		set.Add(cart.Item{
			ID:       mi.ID,
			Name:     mi.Name,
			Price:    numericToDecimal(mi.Price),
			Category: mi.CategoryName,
			ImageURL: mi.ImageURL.String,
		}, line.Quantity, line.Note)
	}
	return set, nil
}

func insertLines(ctx context.Context, st OrderStore, orderID uuid.UUID, set *cart.LineSet) ([]store.OrderItem, error) {
	var items []store.OrderItem
	for _, line := range set.Lines() {
		imageURL := pgtype.Text{}
		if line.ImageURL != "" {
			imageURL = pgtype.Text{String: line.ImageURL, Valid: true}
		}
		note := pgtype.Text{}
		if line.Note != "" {
			note = pgtype.Text{String: line.Note, Valid: true}
		}
		item, err := st.CreateOrderItem(ctx, store.CreateOrderItemParams{
			OrderID:  orderID,
			ItemID:   line.ItemID,
			Name:     line.Name,
			Category: line.Category,
			ImageURL: imageURL,
			Price:    decimalToNumeric(line.Price),
			Quantity: line.Quantity,
			Note:     note,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
