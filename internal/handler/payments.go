package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesa-cafe/api/internal/enum"
	"github.com/mesa-cafe/api/internal/middleware"
	"github.com/mesa-cafe/api/internal/store"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	CreatePayment(ctx context.Context, arg store.CreatePaymentParams) (store.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error)
	UpdateOrderStatus(ctx context.Context, arg store.UpdateOrderStatusParams) (store.Order, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	store PaymentStore
	hub   Broadcaster
}

// NewPaymentHandler creates a new PaymentHandler. hub may be nil.
func NewPaymentHandler(store PaymentStore, hub Broadcaster) *PaymentHandler {
	return &PaymentHandler{store: store, hub: hub}
}

// RegisterRoutes registers the payment endpoints, mounted under
// /orders/{id}/payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

type createPaymentRequest struct {
	PaymentMethod  string `json:"payment_method"`
	AmountReceived string `json:"amount_received"`
}

// Create handles POST /orders/{id}/payments: records a payment for a SERVED
// order and moves it to COMPLETED. For cash payments amount_received is
// required and change is computed server-side.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !isValidPaymentMethod(req.PaymentMethod) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_method"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if order.Status != enum.OrderStatusServed {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "only served orders can be paid"})
		return
	}

	amount := numericToDecimal(order.Total)

	params := store.CreatePaymentParams{
		OrderID:       orderID,
		PaymentMethod: req.PaymentMethod,
		Amount:        order.Total,
		ProcessedBy:   claims.UserID,
	}

	if req.PaymentMethod == enum.PaymentMethodCash {
		if req.AmountReceived == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount_received is required for cash payments"})
			return
		}
		received, err := decimal.NewFromString(req.AmountReceived)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_received"})
			return
		}
		if received.LessThan(amount) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount_received is less than the order total"})
			return
		}
		params.AmountReceived = decimalToNumeric(received)
		params.ChangeAmount = decimalToNumeric(received.Sub(amount))
	}

	payment, err := h.store.CreatePayment(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), store.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     enum.OrderStatusCompleted,
		PrevStatus: enum.OrderStatusServed,
	})
	if err != nil {
		// Payment is recorded either way; log and report the payment.
		log.Printf("ERROR: complete order after payment: %v", err)
	} else if h.hub != nil {
		h.hub.Broadcast("staff", "order.status_changed", toOrderResponse(updated, nil))
		h.hub.Broadcast("table:"+updated.TableID.String(), "order.status_changed", toOrderResponse(updated, nil))
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

// List handles GET /orders/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if _, err := h.store.GetOrder(r.Context(), orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

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

// isValidPaymentMethod checks if the given method is a valid payment method.
func isValidPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodQR:
		return true
	}
	return false
}
