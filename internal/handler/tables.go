package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mesa-cafe/api/internal/store"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *store.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]store.Table, error)
	GetTableByQRCode(ctx context.Context, code uuid.UUID) (store.Table, error)
	CreateTable(ctx context.Context, number int32, qrCode uuid.UUID) (store.Table, error)
	RotateTableQRCode(ctx context.Context, id uuid.UUID, qrCode uuid.UUID) (store.Table, error)
	SoftDeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// TableHandler handles café table management and public QR resolution.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers admin table management endpoints.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/rotate-qr", h.RotateQR)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	Number int32 `json:"number"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	Number    int32     `json:"number"`
	QRCode    uuid.UUID `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
}

// publicTableResponse omits nothing secret today, but keeps the public
// shape independent of the admin one.
type publicTableResponse struct {
	ID     uuid.UUID `json:"id"`
	Number int32     `json:"number"`
}

func toTableResponse(t store.Table) tableResponse {
	return tableResponse{
		ID:        t.ID,
		Number:    t.Number,
		QRCode:    t.QRCode,
		CreatedAt: t.CreatedAt,
	}
}

// --- Handlers ---

// List returns all active tables with their QR tokens.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a table and mints its QR token.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Number <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number must be > 0"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), req.Number, uuid.New())
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// RotateQR mints a fresh QR token for the table, invalidating printed
// stickers.
func (h *TableHandler) RotateQR(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.RotateTableQRCode(r.Context(), tableID, uuid.New())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: rotate table QR: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete soft-deletes a table.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	_, err = h.store.SoftDeleteTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles GET /t/{code}: the first request a customer's phone makes
// after scanning the table QR sticker.
func (h *TableHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code, err := uuid.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table code"})
		return
	}

	table, err := h.store.GetTableByQRCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: resolve table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, publicTableResponse{ID: table.ID, Number: table.Number})
}
