package sales

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/apperr"
)

type Handler struct {
	agg    *Aggregator
	logger *slog.Logger
}

func NewHandler(agg *Aggregator, logger *slog.Logger) *Handler {
	return &Handler{agg: agg, logger: logger}
}

type revenueResponse struct {
	PaymentMethod string          `json:"payment_method,omitempty"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

func (h *Handler) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimSpace(r.URL.Query().Get("payment_method"))

	total, err := h.agg.TotalRevenue(r.Context(), method)
	if err != nil {
		h.logger.Error("failed to compute revenue", "error", err, "payment_method", method)
		meta := apperr.MetadataFor(apperr.CodeOf(err))
		h.writeError(w, meta.HTTPStatus, meta.PublicMessage)
		return
	}

	h.logger.Info("revenue computed", "payment_method", method, "total", total.StringFixed(2))
	h.writeJSON(w, http.StatusOK, revenueResponse{PaymentMethod: method, TotalRevenue: total})
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.Summary(r.Context())
	if err != nil {
		h.logger.Error("failed to summarize sales", "error", err)
		meta := apperr.MetadataFor(apperr.CodeOf(err))
		h.writeError(w, meta.HTTPStatus, meta.PublicMessage)
		return
	}

	h.logger.Info("sales summarized", "completed_orders", summary.CompletedOrders)
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
