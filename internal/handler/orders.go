package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesa-cafe/api/internal/enum"
	"github.com/mesa-cafe/api/internal/middleware"
	"github.com/mesa-cafe/api/internal/service"
	"github.com/mesa-cafe/api/internal/store"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	ReplaceItems(ctx context.Context, req service.ReplaceItemsRequest) (*service.OrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *store.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error)
	UpdateOrderStatus(ctx context.Context, arg store.UpdateOrderStatusParams) (store.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	GetTableByQRCode(ctx context.Context, code uuid.UUID) (store.Table, error)
}

// Broadcaster pushes order events to connected websocket clients. The staff
// channel sees every event; each table channel sees its own orders only.
type Broadcaster interface {
	Broadcast(channel, eventType string, payload any)
}

// KitchenPublisher forwards order events to the kitchen message queue.
// May be nil when the queue is not configured.
type KitchenPublisher interface {
	PublishOrderEvent(ctx context.Context, event string, payload any) error
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	store   OrderStore
	hub     Broadcaster
	kitchen KitchenPublisher
}

// NewOrderHandler creates a new OrderHandler. hub and kitchen may be nil.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster, kitchen KitchenPublisher) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub, kitchen: kitchen}
}

// RegisterRoutes registers the staff order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/items", h.ReplaceItems)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Cancel)
}

// RegisterPublicRoutes registers the customer endpoints, mounted inside the
// table-code-scoped subrouter /t/{code}.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.CreateFromTable)
	r.Get("/orders/{id}", h.GetFromTable)
}

// --- Request / Response types ---

type orderLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type createOrderRequest struct {
	TableID string             `json:"table_id"`
	Notes   string             `json:"notes"`
	Items   []orderLineRequest `json:"items"`
}

type createTableOrderRequest struct {
	Notes string             `json:"notes"`
	Items []orderLineRequest `json:"items"`
}

type replaceItemsRequest struct {
	Notes string             `json:"notes"`
	Items []orderLineRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	Category string    `json:"category"`
	ImageURL string    `json:"image_url"`
	Quantity int32     `json:"quantity"`
	Note     string    `json:"note"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	TableID     uuid.UUID           `json:"table_id"`
	Status      string              `json:"status"`
	Notes       *string             `json:"notes"`
	Total       string              `json:"total"`
	CreatedBy   *string             `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []orderItemResponse `json:"items"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	PaymentMethod  string    `json:"payment_method"`
	Amount         string    `json:"amount"`
	AmountReceived *string   `json:"amount_received"`
	ChangeAmount   *string   `json:"change_amount"`
	Status         string    `json:"status"`
	ProcessedBy    uuid.UUID `json:"processed_by"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// orderDetailResponse extends orderResponse with payments for the GET
// detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders (waiter console: table chosen explicitly).
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	if msg := validateLines(req.Items); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	h.createOrder(w, r, service.CreateOrderRequest{
		TableID:   tableID,
		CreatedBy: pgtype.UUID{Bytes: [16]byte(claims.UserID), Valid: true},
		Notes:     req.Notes,
		Lines:     toServiceLines(req.Items),
	})
}

// CreateFromTable handles POST /t/{code}/orders (customer cart submission).
func (h *OrderHandler) CreateFromTable(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	var req createTableOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validateLines(req.Items); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	h.createOrder(w, r, service.CreateOrderRequest{
		TableID: table.ID,
		Notes:   req.Notes,
		Lines:   toServiceLines(req.Items),
	})
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request, req service.CreateOrderRequest) {
	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.notify(r.Context(), "order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders with optional status/table/date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := store.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = s
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		tid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: [16]byte(tid), Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[i] = toOrderResponse(o, items)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, ok := h.fetchOrder(w, r, orderID)
	if !ok {
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(order, items),
		Payments:      paymentResps,
	})
}

// GetFromTable handles GET /t/{code}/orders/{id}: customers polling their
// order. The order must belong to the scanned table.
func (h *OrderHandler) GetFromTable(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, ok := h.fetchOrder(w, r, orderID)
	if !ok {
		return
	}
	if order.TableID != table.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// ReplaceItems handles PUT /orders/{id}/items (admin edit modal): the full
// items array is replaced atomically.
func (h *OrderHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req replaceItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validateLines(req.Items); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result, err := h.svc.ReplaceItems(r.Context(), service.ReplaceItemsRequest{
		OrderID: orderID,
		Notes:   req.Notes,
		Lines:   toServiceLines(req.Items),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotEditable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: replace order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.notify(r.Context(), "order.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	// Fetch current order to validate the transition.
	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), store.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     req.Status,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No rows updated: the status changed between our read and write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(updated, items)
	h.notify(r.Context(), "order.status_changed", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /orders/{id}. The store enforces the precondition
// atomically: only orders not yet COMPLETED or CANCELLED can be cancelled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	cancelled, err := h.store.CancelOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the order doesn't exist or it's already terminal.
			// Fetch to give a better error message.
			current, fetchErr := h.store.GetOrder(r.Context(), orderID)
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
					return
				}
				log.Printf("ERROR: get order for cancel: %v", fetchErr)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			if current.Status == enum.OrderStatusCompleted {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot cancel a completed order"})
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already cancelled"})
			return
		}
		log.Printf("ERROR: cancel order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(cancelled, items)
	h.notify(r.Context(), "order.status_changed", resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) resolveTable(w http.ResponseWriter, r *http.Request) (store.Table, bool) {
	code, err := uuid.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table code"})
		return store.Table{}, false
	}

	table, err := h.store.GetTableByQRCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return store.Table{}, false
		}
		log.Printf("ERROR: resolve table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return store.Table{}, false
	}
	return table, true
}

func (h *OrderHandler) fetchOrder(w http.ResponseWriter, r *http.Request, orderID uuid.UUID) (store.Order, []store.OrderItem, bool) {
	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return store.Order{}, nil, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return store.Order{}, nil, false
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return store.Order{}, nil, false
	}
	return order, items, true
}

// notify fans an order event out to websocket clients and the kitchen
// queue. Failures are logged, never surfaced: the order is already
// persisted.
func (h *OrderHandler) notify(ctx context.Context, eventType string, resp orderResponse) {
	if h.hub != nil {
		h.hub.Broadcast("staff", eventType, resp)
		h.hub.Broadcast("table:"+resp.TableID.String(), eventType, resp)
	}
	if h.kitchen != nil {
		if err := h.kitchen.PublishOrderEvent(ctx, eventType, resp); err != nil {
			log.Printf("ERROR: publish kitchen event: %v", err)
		}
	}
}

func validateLines(items []orderLineRequest) string {
	if len(items) == 0 {
		return "items are required"
	}
	for i, item := range items {
		if item.ItemID == "" {
			return fmt.Sprintf("items[%d]: item_id is required", i)
		}
		if item.Quantity <= 0 {
			return fmt.Sprintf("items[%d]: quantity must be > 0", i)
		}
	}
	return ""
}

func toServiceLines(items []orderLineRequest) []service.LineRequest {
	lines := make([]service.LineRequest, len(items))
	for i, item := range items {
		lines[i] = service.LineRequest{
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
			Note:     item.Note,
		}
	}
	return lines
}

// isValidationError checks if the error is a known validation error from the
// service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrItemUnavailable) ||
		errors.Is(err, service.ErrTableNotFound)
}

func toOrderResponse(o store.Order, items []store.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		Status:      o.Status,
		Total:       numericToString(o.Total),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.CreatedBy.Valid {
		s := uuid.UUID(o.CreatedBy.Bytes).String()
		resp.CreatedBy = &s
	}

	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    numericToString(it.Price),
			Category: it.Category,
			ImageURL: it.ImageURL.String,
			Quantity: it.Quantity,
			Note:     it.Note.String,
		}
	}
	return resp
}

func toPaymentResponse(p store.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentMethod: p.PaymentMethod,
		Amount:        numericToString(p.Amount),
		Status:        p.Status,
		ProcessedBy:   p.ProcessedBy,
		ProcessedAt:   p.ProcessedAt,
	}
	if p.AmountReceived.Valid {
		s := numericToString(p.AmountReceived)
		resp.AmountReceived = &s
	}
	if p.ChangeAmount.Valid {
		s := numericToString(p.ChangeAmount)
		resp.ChangeAmount = &s
	}
	return resp
}

// isValidOrderStatus checks if the given status is a valid order status.
func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusNew,
		enum.OrderStatusPreparing,
		enum.OrderStatusServed,
		enum.OrderStatusCompleted,
		enum.OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions. Key is current
// status, value is the set of statuses it can transition to.
var allowedTransitions = map[string][]string{
	enum.OrderStatusNew:       {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusServed, enum.OrderStatusCancelled},
	enum.OrderStatusServed:    {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
}

// validateStatusTransition checks if the transition from current to next is
// allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
