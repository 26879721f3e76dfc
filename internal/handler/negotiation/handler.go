package negotiation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
	turns "github.com/nsxzhou/haggle/backend/internal/service/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/store"
	"github.com/nsxzhou/haggle/backend/pkg/utils"
)

// Handler 谈判相关的HTTP处理器
type Handler struct {
	svc      *turns.Service
	personas persona.Store
}

// New 创建谈判处理器
func New(svc *turns.Service, personas persona.Store) *Handler {
	return &Handler{svc: svc, personas: personas}
}

// RegisterRoutes 注册谈判相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/negotiations", h.handleCreate)
	r.Get("/negotiations/{negotiationID}", h.handleGet)
	r.Post("/negotiations/{negotiationID}/turns", h.handleTurn)
	r.Get("/negotiations/{negotiationID}/messages", h.handleMessages)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string  `json:"productId"`
		PersonaID string  `json:"personaId"`
		BasePrice float64 `json:"basePrice"`
		MinPrice  float64 `json:"minPrice"`
		MaxRounds int     `json:"maxRounds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PersonaID != "" {
		if _, ok := h.personas.FindByID(payload.PersonaID); !ok {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
	}

	n := negotiation.Negotiation{
		ProductID: payload.ProductID,
		PersonaID: payload.PersonaID,
		BasePrice: payload.BasePrice,
		MinPrice:  payload.MinPrice,
		MaxRounds: payload.MaxRounds,
	}
	if err := h.svc.Create(r.Context(), &n); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	n, err := h.svc.Load(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, n)
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	var payload turns.IncomingMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.svc.ProcessTurn(r.Context(), id, payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	if _, err := h.svc.Load(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	msgs, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []negotiation.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNegotiationNotFound):
		utils.RespondError(w, http.StatusNotFound, "negotiation not found")
	case errors.Is(err, turns.ErrConcluded):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, turns.ErrInvalidMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
