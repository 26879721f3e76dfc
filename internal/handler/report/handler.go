package report

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nsxzhou/haggle/backend/internal/service/report"
	"github.com/nsxzhou/haggle/backend/internal/store"
	"github.com/nsxzhou/haggle/backend/pkg/utils"
)

// Handler 谈判报告的HTTP处理器
type Handler struct {
	composer     *report.Composer
	negotiations store.NegotiationStore
	history      store.MessageHistory
}

// New 创建报告处理器
func New(composer *report.Composer, negotiations store.NegotiationStore, history store.MessageHistory) *Handler {
	return &Handler{composer: composer, negotiations: negotiations, history: history}
}

// RegisterRoutes 注册报告相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/negotiations/{negotiationID}/reports/{reportType}", h.handleGenerate)
	r.Post("/reports/compare", h.handleCompare)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	reportType, err := report.ParseType(chi.URLParam(r, "reportType"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reportType == report.TypeComparison {
		utils.RespondError(w, http.StatusBadRequest, "comparison reports go through POST /api/reports/compare")
		return
	}

	neg, err := h.negotiations.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNegotiationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "negotiation not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	msgs, err := h.history.History(r.Context(), id, store.HistoryOptions{})
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var out report.Report
	switch reportType {
	case report.TypeSummary:
		out, err = h.composer.Summary(neg, msgs)
	case report.TypeDetailed:
		out, err = h.composer.Detailed(neg, msgs)
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NegotiationIDs []string `json:"negotiationIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.composer.Comparison(r.Context(), payload.NegotiationIDs)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrTooFewNegotiations):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNegotiationNotFound):
			utils.RespondError(w, http.StatusNotFound, "negotiation not found")
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}
