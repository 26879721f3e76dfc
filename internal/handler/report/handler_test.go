package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	model "github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/service/insight"
	reportService "github.com/nsxzhou/haggle/backend/internal/service/report"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	mem := store.NewMemory()

	for _, id := range []string{"n1", "n2"} {
		n := model.Negotiation{
			ID:        id,
			BasePrice: 1000,
			MinPrice:  500,
			MaxRounds: 10,
			Status:    model.StatusInProgress,
			CreatedAt: time.Now().Add(-time.Hour),
		}
		if err := mem.Create(context.Background(), &n); err != nil {
			t.Fatalf("seed negotiation %s: %v", id, err)
		}
		base := time.Now().Add(-30 * time.Minute)
		msgs := []model.Message{
			{ID: id + "-m1", NegotiationID: id, Sender: model.SenderBuyer, Content: "I'd offer $600", Type: model.TypeOffer, Offer: &model.Offer{Amount: 600}, CreatedAt: base},
			{ID: id + "-m2", NegotiationID: id, Sender: model.SenderSeller, Content: "how about $850", Type: model.TypeCounterOffer, Offer: &model.Offer{Amount: 850}, CreatedAt: base.Add(time.Minute)},
		}
		for _, m := range msgs {
			if err := mem.Append(context.Background(), m); err != nil {
				t.Fatalf("seed message: %v", err)
			}
		}
	}

	composer := reportService.NewComposer(insight.NewEngine(), mem, mem)
	handler := New(composer, mem, mem)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestGenerateSummaryAndDetailed(t *testing.T) {
	r := setupRouter(t)
	for _, reportType := range []string{"summary", "detailed"} {
		req := httptest.NewRequest(http.MethodGet, "/negotiations/n1/reports/"+reportType, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", reportType, resp.Code, resp.Body.String())
		}
		var rep reportService.Report
		if err := json.Unmarshal(resp.Body.Bytes(), &rep); err != nil {
			t.Fatalf("%s: decode report: %v", reportType, err)
		}
		if string(rep.Type) != reportType {
			t.Fatalf("expected type %s, got %s", reportType, rep.Type)
		}
	}
}

func TestGenerateComparisonViaGetRejected(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/negotiations/n1/reports/comparison", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerateUnknownReportType(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/negotiations/n1/reports/forecast", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCompare(t *testing.T) {
	r := setupRouter(t)
	payload, _ := json.Marshal(map[string]any{"negotiationIds": []string{"n1", "n2"}})
	req := httptest.NewRequest(http.MethodPost, "/reports/compare", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCompareTooFewIDs(t *testing.T) {
	r := setupRouter(t)
	payload, _ := json.Marshal(map[string]any{"negotiationIds": []string{"n1"}})
	req := httptest.NewRequest(http.MethodPost, "/reports/compare", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCompareUnknownNegotiation(t *testing.T) {
	r := setupRouter(t)
	payload, _ := json.Marshal(map[string]any{"negotiationIds": []string{"n1", "missing"}})
	req := httptest.NewRequest(http.MethodPost, "/reports/compare", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
