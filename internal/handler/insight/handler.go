package insight

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nsxzhou/haggle/backend/internal/service/insight"
	"github.com/nsxzhou/haggle/backend/internal/store"
	"github.com/nsxzhou/haggle/backend/pkg/utils"
)

// Handler 洞察分析的HTTP处理器
type Handler struct {
	engine       *insight.Engine
	negotiations store.NegotiationStore
	history      store.MessageHistory
}

// New 创建洞察处理器
func New(engine *insight.Engine, negotiations store.NegotiationStore, history store.MessageHistory) *Handler {
	return &Handler{engine: engine, negotiations: negotiations, history: history}
}

// RegisterRoutes 注册洞察相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/negotiations/{negotiationID}/insights/{insightType}", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "negotiationID")

	insightType, err := insight.ParseType(chi.URLParam(r, "insightType"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
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

	bundle, err := h.engine.Generate(insightType, msgs, neg)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, bundle)
}
