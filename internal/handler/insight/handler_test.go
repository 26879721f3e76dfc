package insight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	model "github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	insightService "github.com/nsxzhou/haggle/backend/internal/service/insight"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	mem := store.NewMemory()

	n := model.Negotiation{
		ID:        "n1",
		BasePrice: 1000,
		MinPrice:  500,
		MaxRounds: 10,
		Status:    model.StatusInProgress,
		CreatedAt: time.Now(),
	}
	if err := mem.Create(context.Background(), &n); err != nil {
		t.Fatalf("seed negotiation: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	msgs := []model.Message{
		{ID: "m1", NegotiationID: "n1", Sender: model.SenderBuyer, Content: "great product, how about $600?", Type: model.TypeOffer, Offer: &model.Offer{Amount: 600}, CreatedAt: base},
		{ID: "m2", NegotiationID: "n1", Sender: model.SenderSeller, Content: "I could do $800", Type: model.TypeCounterOffer, Offer: &model.Offer{Amount: 800}, CreatedAt: base.Add(time.Minute)},
		{ID: "m3", NegotiationID: "n1", Sender: model.SenderBuyer, Content: "sounds fair, let me think", Type: model.TypeMessage, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, m := range msgs {
		if err := mem.Append(context.Background(), m); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	handler := New(insightService.NewEngine(), mem, mem)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestGenerateEachType(t *testing.T) {
	r := setupRouter(t)
	for _, insightType := range []string{"sentiment", "behavior", "performance", "prediction"} {
		req := httptest.NewRequest(http.MethodGet, "/negotiations/n1/insights/"+insightType, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", insightType, resp.Code, resp.Body.String())
		}
	}
}

func TestGenerateUnknownType(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/negotiations/n1/insights/astrology", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerateUnknownNegotiation(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/negotiations/missing/insights/sentiment", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
