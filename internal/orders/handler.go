package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
)

type Handler struct {
	svc       *Service
	publisher EventPublisher
	logger    *slog.Logger
}

// NewHandler wires the order endpoints. publisher may be nil, in which case
// no events are sent.
func NewHandler(svc *Service, publisher EventPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		svc:       svc,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to create order")
		return
	}

	h.publish(r.Context(), domain.OrderEventCreated, order)

	h.logger.Info("order created", "order_id", order.ID, "customer_name", order.CustomerName, "lines", len(order.Items))
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get order")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.svc.List(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders), "status", status)
	h.writeJSON(w, http.StatusOK, orders)
}

// HandleEdit replaces the order's lines. An edit that leaves no lines cancels
// the order instead.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req EditInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Lines) == 0 {
		order, err := h.svc.Cancel(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err, "failed to cancel emptied order")
			return
		}

		h.publish(r.Context(), domain.OrderEventCancelled, order)
		h.logger.Info("emptied order cancelled", "order_id", id)
		h.writeJSON(w, http.StatusOK, order)
		return
	}

	order, err := h.svc.Edit(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err, "failed to edit order")
		return
	}

	h.publish(r.Context(), domain.OrderEventUpdated, order)
	h.logger.Info("order edited", "order_id", id, "lines", len(order.Items))
	h.writeJSON(w, http.StatusOK, order)
}

type closeRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Close(r.Context(), id, req.PaymentMethod)
	if err != nil {
		h.writeServiceError(w, err, "failed to close order")
		return
	}

	h.publish(r.Context(), domain.OrderEventCompleted, order)
	h.logger.Info("order closed", "order_id", id, "payment_method", order.PaymentMethod)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to cancel order")
		return
	}

	h.publish(r.Context(), domain.OrderEventCancelled, order)
	h.logger.Info("order cancelled", "order_id", id)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.BulkClear(r.Context()); err != nil {
		h.writeServiceError(w, err, "failed to clear orders")
		return
	}

	h.publish(r.Context(), domain.OrderEventCleared, nil)
	h.logger.Info("orders cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(ctx context.Context, eventType domain.OrderEventType, order *domain.Order) {
	if h.publisher == nil {
		return
	}

	event := newOrderEvent(eventType, order)
	if err := h.publisher.Publish(ctx, eventKey(event), event); err != nil {
		h.logger.Error("failed to publish order event", "error", err, "type", eventType, "order_id", event.OrderID)
	}
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
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
