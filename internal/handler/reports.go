package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesa-cafe/api/internal/store"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	GetDailySales(ctx context.Context, arg store.DateRangeParams) ([]store.DailySalesRow, error)
	GetItemSales(ctx context.Context, arg store.DateRangeParams) ([]store.ItemSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg store.DateRangeParams) ([]store.PaymentSummaryRow, error)
}

// ReportHandler handles report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers the report endpoints on the given router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/item-sales", h.ItemSales)
	r.Get("/payment-summary", h.PaymentSummary)
}

type dailySalesResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	Revenue    string `json:"revenue"`
}

type itemSalesResponse struct {
	ItemID       uuid.UUID `json:"item_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	Revenue      string    `json:"revenue"`
}

type paymentSummaryResponse struct {
	PaymentMethod    string `json:"payment_method"`
	TransactionCount int64  `json:"transaction_count"`
	TotalAmount      string `json:"total_amount"`
}

// DailySales handles GET /reports/daily-sales. With ?format=csv the result
// streams as a CSV attachment instead of JSON.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), dateRange)
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:       row.SaleDate.Time.Format("2006-01-02"),
			OrderCount: row.OrderCount,
			Revenue:    numericToString(row.TotalRevenue),
		}
	}

	if r.URL.Query().Get("format") == "csv" {
		records := make([][]string, 0, len(resp)+1)
		records = append(records, []string{"date", "order_count", "revenue"})
		for _, row := range resp {
			records = append(records, []string{row.Date, strconv.FormatInt(row.OrderCount, 10), row.Revenue})
		}
		writeCSV(w, "daily-sales.csv", records)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ItemSales handles GET /reports/item-sales, ordered by quantity sold.
func (h *ReportHandler) ItemSales(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetItemSales(r.Context(), dateRange)
	if err != nil {
		log.Printf("ERROR: item sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemSalesResponse{
			ItemID:       row.ItemID,
			Name:         row.ItemName,
			QuantitySold: row.QuantitySold,
			Revenue:      numericToString(row.TotalRevenue),
		}
	}

	if r.URL.Query().Get("format") == "csv" {
		records := make([][]string, 0, len(resp)+1)
		records = append(records, []string{"item_id", "name", "quantity_sold", "revenue"})
		for _, row := range resp {
			records = append(records, []string{
				row.ItemID.String(), row.Name,
				strconv.FormatInt(row.QuantitySold, 10), row.Revenue,
			})
		}
		writeCSV(w, "item-sales.csv", records)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary handles GET /reports/payment-summary.
func (h *ReportHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), dateRange)
	if err != nil {
		log.Printf("ERROR: payment summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod:    row.PaymentMethod,
			TransactionCount: row.TransactionCount,
			TotalAmount:      numericToString(row.TotalAmount),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseDateRange reads start_date/end_date query params (YYYY-MM-DD,
// end inclusive). Defaults to the last 30 days when absent.
func parseDateRange(w http.ResponseWriter, r *http.Request) (store.DateRangeParams, bool) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return store.DateRangeParams{}, false
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return store.DateRangeParams{}, false
		}
		end = t
	}
	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must not be before start_date"})
		return store.DateRangeParams{}, false
	}

	return store.DateRangeParams{
		Start: pgtype.Timestamptz{Time: start.Truncate(24 * time.Hour), Valid: true},
		End:   pgtype.Timestamptz{Time: end.Truncate(24 * time.Hour).AddDate(0, 0, 1), Valid: true},
	}, true
}

func writeCSV(w http.ResponseWriter, filename string, records [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		log.Printf("ERROR: write csv: %v", err)
	}
}
