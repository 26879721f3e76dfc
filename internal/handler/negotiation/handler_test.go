package negotiation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	model "github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
	"github.com/nsxzhou/haggle/backend/internal/service/contextstore"
	"github.com/nsxzhou/haggle/backend/internal/service/interpreter"
	turns "github.com/nsxzhou/haggle/backend/internal/service/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

func setupRouter() (*chi.Mux, *turns.Service) {
	mem := store.NewMemory()
	contexts := contextstore.NewStore()
	personas := persona.NewMemoryStore(persona.Seed())
	interp := interpreter.New(contexts)
	fallback := interpreter.NewFallbackResponder(personas, contexts)

	svc := turns.NewService(mem, mem, nil, interp, fallback, personas, nil, turns.Config{})
	handler := New(svc, personas)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, svc
}

func createNegotiation(t *testing.T, r *chi.Mux) model.Negotiation {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{
		"productId": "p1",
		"personaId": "firm-but-fair",
		"basePrice": 1000,
		"minPrice":  500,
		"maxRounds": 5,
	})
	req := httptest.NewRequest(http.MethodPost, "/negotiations", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var n model.Negotiation
	if err := json.Unmarshal(resp.Body.Bytes(), &n); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected a generated negotiation id")
	}
	return n
}

func TestCreateNegotiation(t *testing.T) {
	r, _ := setupRouter()
	n := createNegotiation(t, r)
	if n.Status != model.StatusInitiated {
		t.Fatalf("unexpected initial status: %s", n.Status)
	}
}

func TestCreateNegotiationInvalidPrices(t *testing.T) {
	r, _ := setupRouter()
	payload, _ := json.Marshal(map[string]any{
		"basePrice": 100,
		"minPrice":  500,
		"maxRounds": 5,
	})
	req := httptest.NewRequest(http.MethodPost, "/negotiations", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateNegotiationUnknownPersona(t *testing.T) {
	r, _ := setupRouter()
	payload, _ := json.Marshal(map[string]any{
		"personaId": "nobody",
		"basePrice": 1000,
		"minPrice":  500,
		"maxRounds": 5,
	})
	req := httptest.NewRequest(http.MethodPost, "/negotiations", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTurnAndMessages(t *testing.T) {
	r, _ := setupRouter()
	n := createNegotiation(t, r)

	payload, _ := json.Marshal(map[string]any{
		"content": "Would you take $600?",
		"offer":   600,
	})
	req := httptest.NewRequest(http.MethodPost, "/negotiations/"+n.ID+"/turns", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var decision model.Decision
	if err := json.Unmarshal(resp.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if !decision.Action.Known() {
		t.Fatalf("unexpected action: %s", decision.Action)
	}

	req = httptest.NewRequest(http.MethodGet, "/negotiations/"+n.ID+"/messages", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var msgs []model.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected inbound and outbound messages, got %d", len(msgs))
	}
}

func TestTurnUnknownNegotiation(t *testing.T) {
	r, _ := setupRouter()
	payload, _ := json.Marshal(map[string]any{"content": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/negotiations/missing/turns", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestTurnEmptyContent(t *testing.T) {
	r, _ := setupRouter()
	n := createNegotiation(t, r)

	payload, _ := json.Marshal(map[string]any{"content": ""})
	req := httptest.NewRequest(http.MethodPost, "/negotiations/"+n.ID+"/turns", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMessagesBadLimit(t *testing.T) {
	r, _ := setupRouter()
	n := createNegotiation(t, r)

	req := httptest.NewRequest(http.MethodGet, "/negotiations/"+n.ID+"/messages?limit=abc", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
