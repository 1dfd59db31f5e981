package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/stockflow/internal/apperr"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list products")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.svc.AddProduct(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to add product")
		return
	}

	h.logger.Info("product added", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get product")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err, "failed to update product")
		return
	}

	h.logger.Info("product updated", "product_id", product.ID, "stock", product.Stock)
	h.writeJSON(w, http.StatusOK, product)
}

type setStockRequest struct {
	Stock *int `json:"stock"`
}

func (h *Handler) HandleSetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stock == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.svc.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		h.writeServiceError(w, err, "failed to set stock")
		return
	}

	h.logger.Info("stock set", "product_id", id, "stock", product.Stock)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	appErr := apperr.As(err)
	meta := apperr.MetadataFor(apperr.CodeOf(err))
	if appErr == nil || !meta.DetailsAllowed {
		h.logger.Error(msg, "error", err)
		h.writeError(w, meta.HTTPStatus, meta.PublicMessage)
		return
	}

	body := map[string]any{"error": appErr.Message(), "code": appErr.Code()}
	if details := appErr.Details(); details != nil {
		body["details"] = details
	}
	h.writeJSON(w, meta.HTTPStatus, body)
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
