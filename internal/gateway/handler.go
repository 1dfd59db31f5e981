package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// Handler is the public entry point. Order and sales traffic goes to the
// orders service, catalog and stock traffic to the inventory service.
type Handler struct {
	ordersProxy    *ServiceProxy
	inventoryProxy *ServiceProxy
	logger         *slog.Logger
}

func NewHandler(ordersProxy, inventoryProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy:    ordersProxy,
		inventoryProxy: inventoryProxy,
		logger:         logger,
	}
}

// Register adds the gateway routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/orders", h.HandleOrders)
	mux.HandleFunc("/orders/", h.HandleOrders)
	mux.HandleFunc("/sales", h.HandleOrders)
	mux.HandleFunc("/sales/", h.HandleOrders)
	mux.HandleFunc("/products", h.HandleProducts)
	mux.HandleFunc("/products/", h.HandleProducts)
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, "orders")
}

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.inventoryProxy, "inventory")
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, upstream string) {
	resp, err := proxy.ForwardRequest(r.Context(), r)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "upstream", upstream, "path", r.URL.Path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", r.URL.Path, "upstream", upstream, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
