package sales

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joao-fontenele/stockflow/internal/store"
)

func newTestMux(reader Reader) *http.ServeMux {
	handler := NewHandler(NewAggregator(reader), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sales", handler.HandleRevenue)
	mux.HandleFunc("GET /sales/summary", handler.HandleSummary)
	return mux
}

func TestHandler_Revenue(t *testing.T) {
	mux := newTestMux(stubReader{lines: []store.SaleLine{
		sale(1, "cash", false, 1, "100"),
		sale(2, "card", true, 1, "100"),
	}})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"all", "/sales", "185"},
		{"filtered", "/sales?payment_method=card", "85"},
		{"no match", "/sales?payment_method=pix", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}

			var resp map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["total_revenue"] != tt.want {
				t.Errorf("expected %s, got %v", tt.want, resp["total_revenue"])
			}
		})
	}
}

func TestHandler_Summary(t *testing.T) {
	t.Run("returns the breakdown", func(t *testing.T) {
		mux := newTestMux(stubReader{lines: []store.SaleLine{sale(1, "cash", false, 2, "10")}})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/summary", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var summary Summary
		if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if summary.CompletedOrders != 1 || len(summary.ByPaymentMethod) != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		mux := newTestMux(stubReader{err: errors.New("boom")})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/summary", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}
