package procurement

import (
	"context"
	"net/http"

	"gopharma/internal/api/respond"
	"gopharma/internal/domain"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/pkg/middleware"
)

// MatchingService define o contrato que o Handler espera do motor de conciliação.
type MatchingService interface {
	Match(ctx context.Context, req domain.MatchRequest, matchedBy string) (domain.MatchDecision, error)
}

// DecisionRecorder conta as decisões produzidas (implementado por metrics.Metrics).
type DecisionRecorder interface {
	ObserveDecision(engine, outcome string)
}

// Handler agrupa os handlers de compras.
type Handler struct {
	Service MatchingService
	Metrics DecisionRecorder
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler de compras.
func NewHandler(svc MatchingService, rec DecisionRecorder, log logger.Logger) *Handler {
	return &Handler{Service: svc, Metrics: rec, Logger: log}
}

// MatchInvoiceHandler lida com POST /v1/procurement/invoices/match.
// Com autenticação ativa, o usuário do token é registrado em matched_by.
func (h *Handler) MatchInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.MatchRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	var matchedBy string
	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		matchedBy = claims.UserID
	}

	decision, err := h.Service.Match(r.Context(), req, matchedBy)
	if err != nil {
		respond.ServiceResponse(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	h.Metrics.ObserveDecision("matching", string(decision.Status))
	respond.ServiceResponse(w, r, h.Logger, decision, nil, http.StatusOK)
}
