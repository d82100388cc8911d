package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesa-cafe/api/internal/enum"
	"github.com/mesa-cafe/api/internal/store"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	commits   int
	rollbacks int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getTableFn              func(ctx context.Context, id uuid.UUID) (store.Table, error)
	getMenuItemForOrderFn   func(ctx context.Context, id uuid.UUID) (store.MenuItemForOrder, error)
	getNextOrderSeqFn       func(ctx context.Context) (int32, error)
	createOrderFn           func(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	createOrderItemFn       func(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error)
	getOrderFn              func(ctx context.Context, id uuid.UUID) (store.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error)
	deleteOrderItemsFn      func(ctx context.Context, orderID uuid.UUID) error
	updateOrderTotalsFn     func(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error)
}

func (m *mockOrderStore) GetTable(ctx context.Context, id uuid.UUID) (store.Table, error) {
	return m.getTableFn(ctx, id)
}
func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (store.MenuItemForOrder, error) {
	return m.getMenuItemForOrderFn(ctx, id)
}
func (m *mockOrderStore) GetNextOrderSeq(ctx context.Context) (int32, error) {
	return m.getNextOrderSeqFn(ctx)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) UpdateOrderTotals(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error) {
	return m.updateOrderTotalsFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestService(st *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db store.DBTX) OrderStore { return st }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockOrderStore prepared for a basic one-item order.
// Individual tests override the functions they care about.
func defaultStore(tableID, itemID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getTableFn: func(ctx context.Context, id uuid.UUID) (store.Table, error) {
			if id == tableID {
				return store.Table{ID: tableID, Number: 4, QRCode: uuid.New(), IsActive: true}, nil
			}
			return store.Table{}, pgx.ErrNoRows
		},
		getMenuItemForOrderFn: func(ctx context.Context, id uuid.UUID) (store.MenuItemForOrder, error) {
			if id == itemID {
				return store.MenuItemForOrder{
					ID:           itemID,
					Name:         "Flat White",
					Price:        makeNumeric("50.00"),
					CategoryName: "Coffee",
					IsAvailable:  true,
				}, nil
			}
			return store.MenuItemForOrder{}, pgx.ErrNoRows
		},
		getNextOrderSeqFn: func(ctx context.Context) (int32, error) { return 1, nil },
		createOrderFn: func(ctx context.Context, arg store.CreateOrderParams) (store.Order, error) {
			return store.Order{
				ID:          uuid.New(),
				OrderNumber: arg.OrderNumber,
				TableID:     arg.TableID,
				Status:      enum.OrderStatusNew,
				Notes:       arg.Notes,
				Total:       arg.Total,
				CreatedBy:   arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error) {
			return store.OrderItem{
				ID:       uuid.New(),
				OrderID:  arg.OrderID,
				ItemID:   arg.ItemID,
				Name:     arg.Name,
				Category: arg.Category,
				ImageURL: arg.ImageURL,
				Price:    arg.Price,
				Quantity: arg.Quantity,
				Note:     arg.Note,
			}, nil
		},
	}
}

// --- CreateOrder tests ---

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc, _ := newTestService(&mockOrderStore{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{TableID: uuid.New()})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCreateOrder_Basic(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(tableID, itemID)
	svc, tx := newTestService(st)

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 2, Note: "no sugar"}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if !numericEquals(result.Order.Total, "100.00") {
		t.Errorf("total: got %v, want 100.00", result.Order.Total)
	}
	if !strings.HasPrefix(result.Order.OrderNumber, "MESA-") {
		t.Errorf("order number: got %q, want MESA- prefix", result.Order.OrderNumber)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(result.Items))
	}
	item := result.Items[0]
	if item.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", item.Quantity)
	}
	if !item.Note.Valid || item.Note.String != "no sugar" {
		t.Errorf("note: got %+v, want 'no sugar'", item.Note)
	}
	if item.Category != "Coffee" {
		t.Errorf("category snapshot: got %q, want Coffee", item.Category)
	}
	if tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", tx.commits)
	}
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(tableID, itemID)

	var created []store.CreateOrderItemParams
	inner := st.createOrderItemFn
	st.createOrderItemFn = func(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error) {
		created = append(created, arg)
		return inner(ctx, arg)
	}
	svc, _ := newTestService(st)

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines: []LineRequest{
			{ItemID: itemID.String(), Quantity: 1, Note: "oat milk"},
			{ItemID: itemID.String(), Quantity: 2, Note: "ignored"},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("inserted lines: got %d, want 1", len(created))
	}
	if created[0].Quantity != 3 {
		t.Errorf("merged quantity: got %d, want 3", created[0].Quantity)
	}
	if !created[0].Note.Valid || created[0].Note.String != "oat milk" {
		t.Errorf("note: got %+v, want first note preserved", created[0].Note)
	}
	if !numericEquals(result.Order.Total, "150.00") {
		t.Errorf("total: got %v, want 150.00", result.Order.Total)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	svc, _ := newTestService(defaultStore(tableID, itemID))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	tableID := uuid.New()
	svc, _ := newTestService(defaultStore(tableID, uuid.New()))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: uuid.New().String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestCreateOrder_UnavailableItem(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(tableID, itemID)
	st.getMenuItemForOrderFn = func(ctx context.Context, id uuid.UUID) (store.MenuItemForOrder, error) {
		return store.MenuItemForOrder{ID: itemID, Name: "Scone", Price: makeNumeric("20.00"), IsAvailable: false}, nil
	}
	svc, _ := newTestService(st)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("expected ErrItemUnavailable, got %v", err)
	}
}

func TestCreateOrder_UnknownTable(t *testing.T) {
	svc, _ := newTestService(defaultStore(uuid.New(), uuid.New()))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: uuid.New(),
		Lines:   []LineRequest{{ItemID: uuid.New().String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestCreateOrder_RetriesOnOrderNumberConflict(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(tableID, itemID)

	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	attempts := 0
	inner := st.createOrderFn
	st.createOrderFn = func(ctx context.Context, arg store.CreateOrderParams) (store.Order, error) {
		attempts++
		if attempts < 3 {
			return store.Order{}, conflict
		}
		return inner(ctx, arg)
	}
	svc, _ := newTestService(st)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
}

func TestCreateOrder_GivesUpAfterMaxRetries(t *testing.T) {
	tableID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(tableID, itemID)

	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	st.createOrderFn = func(ctx context.Context, arg store.CreateOrderParams) (store.Order, error) {
		return store.Order{}, conflict
	}
	svc, _ := newTestService(st)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: tableID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 1}},
	})
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected conflict error after exhausting retries, got %v", err)
	}
}

// --- ReplaceItems tests ---

func editableOrder(orderID uuid.UUID, status string) store.Order {
	return store.Order{
		ID:          orderID,
		OrderNumber: "MESA-20250901-001",
		TableID:     uuid.New(),
		Status:      status,
		Total:       makeNumeric("50.00"),
	}
}

func TestReplaceItems_PreservesPriorPriceSnapshot(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(uuid.New(), itemID)

	st.getOrderFn = func(ctx context.Context, id uuid.UUID) (store.Order, error) {
		return editableOrder(orderID, enum.OrderStatusNew), nil
	}
	// The order already holds this item at an old price; the menu price
	// has since gone up.
	st.listOrderItemsByOrderFn = func(ctx context.Context, oid uuid.UUID) ([]store.OrderItem, error) {
		return []store.OrderItem{{
			ID: uuid.New(), OrderID: orderID, ItemID: itemID,
			Name: "Flat White", Category: "Coffee",
			Price: makeNumeric("40.00"), Quantity: 1,
		}}, nil
	}
	st.deleteOrderItemsFn = func(ctx context.Context, oid uuid.UUID) error { return nil }

	var inserted []store.CreateOrderItemParams
	inner := st.createOrderItemFn
	st.createOrderItemFn = func(ctx context.Context, arg store.CreateOrderItemParams) (store.OrderItem, error) {
		inserted = append(inserted, arg)
		return inner(ctx, arg)
	}
	st.updateOrderTotalsFn = func(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error) {
		o := editableOrder(orderID, enum.OrderStatusNew)
		o.Total = arg.Total
		o.Notes = arg.Notes
		return o, nil
	}
	svc, _ := newTestService(st)

	result, err := svc.ReplaceItems(context.Background(), ReplaceItemsRequest{
		OrderID: orderID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("replace items: %v", err)
	}

	if len(inserted) != 1 {
		t.Fatalf("inserted lines: got %d, want 1", len(inserted))
	}
	if !numericEquals(inserted[0].Price, "40.00") {
		t.Errorf("price snapshot: got %v, want original 40.00", inserted[0].Price)
	}
	if !numericEquals(result.Order.Total, "120.00") {
		t.Errorf("total: got %v, want 120.00", result.Order.Total)
	}
}

func TestReplaceItems_NewItemPricedFromMenu(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	st := defaultStore(uuid.New(), itemID)

	st.getOrderFn = func(ctx context.Context, id uuid.UUID) (store.Order, error) {
		return editableOrder(orderID, enum.OrderStatusPreparing), nil
	}
	st.listOrderItemsByOrderFn = func(ctx context.Context, oid uuid.UUID) ([]store.OrderItem, error) {
		return nil, nil
	}
	st.deleteOrderItemsFn = func(ctx context.Context, oid uuid.UUID) error { return nil }
	st.updateOrderTotalsFn = func(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error) {
		o := editableOrder(orderID, enum.OrderStatusPreparing)
		o.Total = arg.Total
		return o, nil
	}
	svc, _ := newTestService(st)

	result, err := svc.ReplaceItems(context.Background(), ReplaceItemsRequest{
		OrderID: orderID,
		Lines:   []LineRequest{{ItemID: itemID.String(), Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("replace items: %v", err)
	}
	if !numericEquals(result.Order.Total, "100.00") {
		t.Errorf("total: got %v, want 100.00", result.Order.Total)
	}
}

func TestReplaceItems_TerminalOrderRejected(t *testing.T) {
	orderID := uuid.New()
	st := defaultStore(uuid.New(), uuid.New())
	st.getOrderFn = func(ctx context.Context, id uuid.UUID) (store.Order, error) {
		return editableOrder(orderID, enum.OrderStatusCompleted), nil
	}
	svc, tx := newTestService(st)

	_, err := svc.ReplaceItems(context.Background(), ReplaceItemsRequest{
		OrderID: orderID,
		Lines:   []LineRequest{{ItemID: uuid.New().String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotEditable) {
		t.Fatalf("expected ErrOrderNotEditable, got %v", err)
	}
	if tx.commits != 0 {
		t.Errorf("commits: got %d, want 0", tx.commits)
	}
}

func TestReplaceItems_EmptyCart(t *testing.T) {
	svc, _ := newTestService(&mockOrderStore{})

	_, err := svc.ReplaceItems(context.Background(), ReplaceItemsRequest{OrderID: uuid.New()})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestReplaceItems_OrderNotFound(t *testing.T) {
	st := defaultStore(uuid.New(), uuid.New())
	st.getOrderFn = func(ctx context.Context, id uuid.UUID) (store.Order, error) {
		return store.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(st)

	_, err := svc.ReplaceItems(context.Background(), ReplaceItemsRequest{
		OrderID: uuid.New(),
		Lines:   []LineRequest{{ItemID: uuid.New().String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
