package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/joao-fontenele/stockflow/internal/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	keys   []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(domain.OrderEvent))
	return nil
}

func (p *recordingPublisher) last(t *testing.T) domain.OrderEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.events) == 0 {
		t.Fatal("expected an event to be published")
	}
	return p.events[len(p.events)-1]
}

func newTestMux(t *testing.T, publisher EventPublisher) (*http.ServeMux, *fixture) {
	t.Helper()

	f := newFixture(t)
	handler := NewHandler(f.svc, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", handler.HandleList)
	mux.HandleFunc("POST /orders", handler.HandleCreate)
	mux.HandleFunc("DELETE /orders", handler.HandleClear)
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)
	mux.HandleFunc("PUT /orders/{id}", handler.HandleEdit)
	mux.HandleFunc("POST /orders/{id}/close", handler.HandleClose)
	mux.HandleFunc("POST /orders/{id}/cancel", handler.HandleCancel)
	return mux, f
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) domain.Order {
	t.Helper()
	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return order
}

func createBody(f *fixture) string {
	return fmt.Sprintf(`{"customer_name":"Ana","is_member":true,"items":[{"product_id":%d,"quantity":2,"unit_price":"10"}]}`, f.ids["Widget"])
}

func TestHandler_Create(t *testing.T) {
	publisher := &recordingPublisher{}
	mux, f := newTestMux(t, publisher)

	t.Run("valid order returns 201 and publishes", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/orders", createBody(f))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		order := decodeOrder(t, rec)
		if order.Status != domain.OrderStatusPending || !order.IsMember || len(order.Items) != 1 {
			t.Errorf("unexpected order: %+v", order)
		}
		if order.Items[0].ProductName != "Widget" {
			t.Errorf("expected product name Widget, got %s", order.Items[0].ProductName)
		}

		event := publisher.last(t)
		if event.Type != domain.OrderEventCreated || event.OrderID != order.ID {
			t.Errorf("unexpected event: %+v", event)
		}
		if event.EventID == "" {
			t.Error("expected event id to be set")
		}
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/orders", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("no items returns 400 with details", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/orders", `{"customer_name":"Ana","items":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["code"] != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR code, got %v", resp["code"])
		}
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		rec := serve(mux, http.MethodPost, "/orders", `{"customer_name":"Ana","items":[{"product_id":999,"quantity":1,"unit_price":"1"}]}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_Lifecycle(t *testing.T) {
	t.Run("edit with no items cancels the order", func(t *testing.T) {
		publisher := &recordingPublisher{}
		mux, f := newTestMux(t, publisher)
		created := decodeOrder(t, serve(mux, http.MethodPost, "/orders", createBody(f)))

		rec := serve(mux, http.MethodPut, fmt.Sprintf("/orders/%d", created.ID), `{"items":[]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if order := decodeOrder(t, rec); order.Status != domain.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %s", order.Status)
		}
		if got := f.stock(t, "Widget"); got != 10 {
			t.Errorf("expected Widget stock restored to 10, got %d", got)
		}
		if event := publisher.last(t); event.Type != domain.OrderEventCancelled {
			t.Errorf("expected cancelled event, got %s", event.Type)
		}
	})

	t.Run("edit updates lines", func(t *testing.T) {
		publisher := &recordingPublisher{}
		mux, f := newTestMux(t, publisher)
		created := decodeOrder(t, serve(mux, http.MethodPost, "/orders", createBody(f)))

		body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":5,"unit_price":"10"}]}`, f.ids["Widget"])
		rec := serve(mux, http.MethodPut, fmt.Sprintf("/orders/%d", created.ID), body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := f.stock(t, "Widget"); got != 5 {
			t.Errorf("expected Widget stock 5, got %d", got)
		}
		if event := publisher.last(t); event.Type != domain.OrderEventUpdated {
			t.Errorf("expected updated event, got %s", event.Type)
		}
	})

	t.Run("close then close again returns 422", func(t *testing.T) {
		publisher := &recordingPublisher{}
		mux, f := newTestMux(t, publisher)
		created := decodeOrder(t, serve(mux, http.MethodPost, "/orders", createBody(f)))
		path := fmt.Sprintf("/orders/%d/close", created.ID)

		rec := serve(mux, http.MethodPost, path, `{"payment_method":"pix"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if event := publisher.last(t); event.Type != domain.OrderEventCompleted || event.PaymentMethod != "pix" {
			t.Errorf("unexpected event: %+v", event)
		}

		rec = serve(mux, http.MethodPost, path, `{"payment_method":"pix"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["code"] != "STATE_CONFLICT" {
			t.Errorf("expected STATE_CONFLICT code, got %v", resp["code"])
		}
	})

	t.Run("cancel unknown order returns 404", func(t *testing.T) {
		mux, _ := newTestMux(t, nil)

		rec := serve(mux, http.MethodPost, "/orders/404/cancel", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		mux, _ := newTestMux(t, nil)

		rec := serve(mux, http.MethodGet, "/orders/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_ListAndClear(t *testing.T) {
	publisher := &recordingPublisher{}
	mux, f := newTestMux(t, publisher)
	serve(mux, http.MethodPost, "/orders", createBody(f))
	serve(mux, http.MethodPost, "/orders", createBody(f))

	rec := serve(mux, http.MethodGet, "/orders?status=pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var orders []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders, got %d", len(orders))
	}

	rec = serve(mux, http.MethodGet, "/orders?status=shipped", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown status, got %d", rec.Code)
	}

	rec = serve(mux, http.MethodDelete, "/orders", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if event := publisher.last(t); event.Type != domain.OrderEventCleared {
		t.Errorf("expected cleared event, got %s", event.Type)
	}
	if key := publisher.keys[len(publisher.keys)-1]; key != string(domain.OrderEventCleared) {
		t.Errorf("expected key %s, got %s", domain.OrderEventCleared, key)
	}
}

func TestHandler_PublishFailureDoesNotFailRequest(t *testing.T) {
	mux, f := newTestMux(t, &recordingPublisher{err: errors.New("broker down")})

	rec := serve(mux, http.MethodPost, "/orders", createBody(f))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
}
